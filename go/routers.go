package ordersserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers exposed by the API.
type ApiHandleFunctions struct {
	OrderAPI OrderAPI
	// Metrics serves the Prometheus registry; nil disables /metrics.
	Metrics http.Handler
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc is the default handler for routes without an implementation.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	routes := []Route{
		{"PlaceOrder", http.MethodPost, "/v1/orders", handleFunctions.OrderAPI.PlaceOrder},
		{"PlaceCartOrder", http.MethodPost, "/v1/orders/cart", handleFunctions.OrderAPI.PlaceCartOrder},
		{"ListOrders", http.MethodGet, "/v1/orders", handleFunctions.OrderAPI.ListOrders},
		{"GetOrder", http.MethodGet, "/v1/orders/:orderId", handleFunctions.OrderAPI.GetOrder},
		{"UpdateOrderStatus", http.MethodPatch, "/v1/orders/:orderId/status", handleFunctions.OrderAPI.UpdateOrderStatus},
		{"DeleteOrder", http.MethodDelete, "/v1/orders/:orderId", handleFunctions.OrderAPI.DeleteOrder},
		{"Healthz", http.MethodGet, "/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }},
	}
	if handleFunctions.Metrics != nil {
		routes = append(routes, Route{"Metrics", http.MethodGet, "/metrics", gin.WrapH(handleFunctions.Metrics)})
	}
	return routes
}
