package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	orderspostgres "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/persistence/postgres"
	platformpostgres "github.com/seboge-Atlegang/part3Cloud/internal/platform/postgres"
)

const defaultRetention = 24 * time.Hour

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge idempotency keys")
	}

	cutoff := time.Now().Add(-retentionFromEnv())
	purged, err := orderspostgres.NewIdempotencyStore(db).PurgeBefore(ctx, cutoff)
	if err != nil {
		log.Fatalf("failed to purge idempotency keys: %v", err)
	}
	log.Printf("idempotency purge completed: %d keys older than %s removed", purged, cutoff.UTC().Format(time.RFC3339))
}

func retentionFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_TTL_HOURS"))
	if raw == "" {
		return defaultRetention
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return defaultRetention
	}
	return time.Duration(hours) * time.Hour
}
