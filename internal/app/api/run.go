package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	ordersserver "github.com/seboge-Atlegang/part3Cloud/go"
	"github.com/seboge-Atlegang/part3Cloud/internal/app/seed"
	ordersobs "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/observability"
	ordersworkflows "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/workflows"
	ordersports "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
	platformobservability "github.com/seboge-Atlegang/part3Cloud/internal/platform/observability"
)

// Run boots the orders HTTP API with observability, repositories, events and checkout workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	const serviceName = "orders-api"
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	repos, cleanupRepos := BuildRepositories(ctx, cfg, logger)
	defer cleanupRepos()
	if cfg.SeedCatalog {
		result, err := seed.Catalog(ctx, repos.Catalog, repos.Customers)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("catalog seeded", slog.Int("products", result.Products), slog.Int("customers", result.Customers))
	}

	publisher, cleanupPublisher := BuildPublisher(ctx, cfg, logger, instruments.PrometheusRegisterer(), serviceName)
	defer cleanupPublisher()

	coreService := NewOrderService(cfg, repos, publisher, logger)
	orderService := ordersobs.New(
		coreService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	var checkouts ordersports.CheckoutOrchestrator = ordersworkflows.NewInlineCheckouts(orderService)
	if !repos.Durable {
		logger.Info("in-memory repositories in use, running cart checkouts inline")
	} else if temporalClient, err := ConnectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, running cart checkouts inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		checkouts = ordersworkflows.NewTemporalCheckouts(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	ordersserver.NewRouterWithGinEngine(router, ordersserver.ApiHandleFunctions{
		OrderAPI: ordersserver.NewOrderAPI(orderService, checkouts),
		Metrics:  instruments.MetricsHandler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Orders API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("Orders API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Orders API shutting down")
	return server.Shutdown(shutdownCtx)
}
