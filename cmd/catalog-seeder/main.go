package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/seboge-Atlegang/part3Cloud/internal/app/seed"
	customerpostgres "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/adapters/persistence/postgres"
	inventorypostgres "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/adapters/persistence/postgres"
	"github.com/seboge-Atlegang/part3Cloud/internal/platform/migrations"
	platformpostgres "github.com/seboge-Atlegang/part3Cloud/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot seed catalog")
	}
	if err := migrations.Run(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	result, err := seed.Catalog(ctx, inventorypostgres.NewStore(db), customerpostgres.NewRepository(db))
	if err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}
	log.Printf("catalog seed completed: %d products, %d customers", result.Products, result.Customers)
}
