//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "orders-api"
	ConsumerName = "storefront"

	StateCatalogSeeded = "catalog with product prod-pact and customer cust-pact"
	StateOrderExists   = "submitted order ord-pact-301 exists"
	StateOrderMissing  = "no order with id ord-missing"
)

const (
	CustomerID      = "cust-pact"
	ProductID       = "prod-pact"
	ProductName     = "Pact Pour-Over Kettle"
	ProductPrice    = "12.99"
	ProductStock    = 10
	ExistingOrderID = "ord-pact-301"
	MissingOrderID  = "ord-missing"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExamplePlaceOrderPayload provides stable test data for placement interactions.
func ExamplePlaceOrderPayload(quantity int) map[string]any {
	return map[string]any{
		"customerId": CustomerID,
		"productId":  ProductID,
		"quantity":   quantity,
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
