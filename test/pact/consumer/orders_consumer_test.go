//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	pacttest "github.com/seboge-Atlegang/part3Cloud/test/pact"
)

type orderLine struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

type orderPayload struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customerId"`
	Status      string      `json:"status"`
	OrderDate   string      `json:"orderDateUtc"`
	Lines       []orderLine `json:"lines"`
	TotalAmount string      `json:"totalAmount"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status      int
	problemType string
	title       string
	detail      string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func TestStorefrontOrdersContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	orderBody := func(id, status string) matchers.Map {
		return matchers.Map{
			"id":           matchers.Like(id),
			"customerId":   matchers.S(pacttest.CustomerID),
			"status":       matchers.Term(status, "Submitted|Processing|Completed|Cancelled"),
			"orderDateUtc": matchers.Like("2024-06-12T10:00:00Z"),
			"lines": matchers.EachLike(matchers.Map{
				"productId":   matchers.S(pacttest.ProductID),
				"productName": matchers.Like(pacttest.ProductName),
				"quantity":    matchers.Like(2),
				"unitPrice":   matchers.Like(pacttest.ProductPrice),
				"subtotal":    matchers.Like("25.98"),
			}, 1),
			"totalAmount": matchers.Like("25.98"),
		}
	}

	pact.AddInteraction().
		Given(pacttest.StateCatalogSeeded).
		UponReceiving("a request to place an order").
		WithRequest("POST", "/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExamplePlaceOrderPayload(2))
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody("8b0f6a52-3c1e-4d7a-9d59-0f5b8a1c2e11", "Submitted"))
		})

	pact.AddInteraction().
		Given(pacttest.StateCatalogSeeded).
		UponReceiving("a request to order more than is in stock").
		WithRequest("POST", "/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExamplePlaceOrderPayload(pacttest.ProductStock + 40))
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/insufficient-stock"),
				"title":  matchers.S("Insufficient Stock"),
				"status": matchers.Like(http.StatusConflict),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderExists).
		UponReceiving("a request to fetch an existing order").
		WithRequest("GET", "/v1/orders/"+pacttest.ExistingOrderID).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody(pacttest.ExistingOrderID, "Submitted"))
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderExists).
		UponReceiving("a request to start processing an order").
		WithRequest("PATCH", "/v1/orders/"+pacttest.ExistingOrderID+"/status", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(map[string]any{"status": "Processing"})
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody(pacttest.ExistingOrderID, "Processing"))
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request for a missing order").
		WithRequest("GET", "/v1/orders/"+pacttest.MissingOrderID).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newOrdersClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		placed, err := client.PlaceOrder(ctx, pacttest.ExamplePlaceOrderPayload(2))
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if placed.ID == "" || len(placed.Lines) == 0 {
			return fmt.Errorf("expected order with lines, got %+v", placed)
		}

		if _, err := client.PlaceOrder(ctx, pacttest.ExamplePlaceOrderPayload(pacttest.ProductStock+40)); err == nil {
			return fmt.Errorf("expected insufficient stock")
		} else if apiErr, ok := err.(apiError); !ok || apiErr.problemType != "/problems/insufficient-stock" {
			return fmt.Errorf("expected insufficient-stock problem, got %v", err)
		}

		fetched, err := client.GetOrder(ctx, pacttest.ExistingOrderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if fetched.ID != pacttest.ExistingOrderID {
			return fmt.Errorf("expected order %s, got %s", pacttest.ExistingOrderID, fetched.ID)
		}

		updated, err := client.UpdateStatus(ctx, pacttest.ExistingOrderID, "Processing")
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if updated.Status != "Processing" {
			return fmt.Errorf("expected Processing, got %s", updated.Status)
		}

		if _, err := client.GetOrder(ctx, pacttest.MissingOrderID); err == nil {
			return fmt.Errorf("expected 404 for order %s", pacttest.MissingOrderID)
		} else if apiErr, ok := err.(apiError); ok && apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %d", apiErr.status)
		}
		return nil
	})
	require.NoError(t, err)
}

type ordersClient struct {
	baseURL    string
	httpClient *http.Client
}

func newOrdersClient(config pactconsumer.MockServerConfig) *ordersClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &ordersClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *ordersClient) PlaceOrder(ctx context.Context, payload map[string]any) (*orderPayload, error) {
	return c.send(ctx, http.MethodPost, "/v1/orders", payload)
}

func (c *ordersClient) GetOrder(ctx context.Context, id string) (*orderPayload, error) {
	return c.send(ctx, http.MethodGet, "/v1/orders/"+id, nil)
}

func (c *ordersClient) UpdateStatus(ctx context.Context, id, status string) (*orderPayload, error) {
	return c.send(ctx, http.MethodPatch, "/v1/orders/"+id+"/status", map[string]any{"status": status})
}

func (c *ordersClient) send(ctx context.Context, method, path string, payload any) (*orderPayload, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(res)
	}
	var order orderPayload
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{
		status:      status,
		problemType: problem.Type,
		title:       problem.Title,
		detail:      problem.Detail,
	}
}
