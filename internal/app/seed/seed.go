package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	customerdomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/domain"
	customerports "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/ports"
	inventorydomain "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/domain"
	inventoryports "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
)

type product struct {
	id, name, description, price string
	stock                        int
}

type customer struct {
	id, name, surname, username, email string
}

var (
	products = []product{
		{"prod-espresso-beans", "Espresso Beans 1kg", "Dark roast whole beans", "249.99", 40},
		{"prod-pour-over-kettle", "Pour-Over Kettle", "Gooseneck kettle, 1L", "499.00", 12},
		{"prod-paper-filters", "Paper Filters (100)", "Size 02 cone filters", "59.50", 200},
		{"prod-burr-grinder", "Burr Grinder", "Conical burr hand grinder", "1299.00", 5},
	}
	customers = []customer{
		{"cust-thandi", "Thandi", "Mokoena", "thandi", "thandi@example.com"},
		{"cust-pieter", "Pieter", "van Wyk", "pieter", "pieter@example.com"},
	}
)

// Result reports how many records a seed run wrote.
type Result struct {
	Products  int
	Customers int
}

// Catalog writes the sample products and customers. Existing products keep
// their current stock.
func Catalog(ctx context.Context, catalog inventoryports.Catalog, repo customerports.Repository) (Result, error) {
	var result Result
	existing, err := catalog.ListProducts(ctx)
	if err != nil {
		return result, fmt.Errorf("list products: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.ID] = struct{}{}
	}
	for _, p := range products {
		if _, ok := known[p.id]; ok {
			continue
		}
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return result, fmt.Errorf("price for %s: %w", p.id, err)
		}
		record, err := inventorydomain.NewProduct(p.id, p.name, price, p.stock)
		if err != nil {
			return result, err
		}
		record.Description = p.description
		if _, err := catalog.SaveProduct(ctx, record); err != nil {
			return result, fmt.Errorf("save product %s: %w", p.id, err)
		}
		result.Products++
	}
	for _, c := range customers {
		exists, err := repo.Exists(ctx, c.id)
		if err != nil {
			return result, fmt.Errorf("lookup customer %s: %w", c.id, err)
		}
		if exists {
			continue
		}
		record, err := customerdomain.NewCustomer(c.id, c.name, c.surname, c.username, c.email)
		if err != nil {
			return result, err
		}
		if _, err := repo.Save(ctx, record); err != nil {
			return result, fmt.Errorf("save customer %s: %w", c.id, err)
		}
		result.Customers++
	}
	return result, nil
}
