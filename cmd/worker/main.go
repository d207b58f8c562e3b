package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/seboge-Atlegang/part3Cloud/internal/app/api"
	platformobservability "github.com/seboge-Atlegang/part3Cloud/internal/platform/observability"
	orderactivities "github.com/seboge-Atlegang/part3Cloud/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/seboge-Atlegang/part3Cloud/internal/platform/temporal/workflows/orders"
)

func main() {
	ctx := context.Background()
	const serviceName = "orders-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	repos, cleanupRepos := api.BuildRepositories(ctx, cfg, logger)
	defer cleanupRepos()
	if !repos.Durable {
		logger.Warn("worker running with in-memory repositories; checkouts will not be visible to the API")
	}
	publisher, cleanupPublisher := api.BuildPublisher(ctx, cfg, logger, instruments.PrometheusRegisterer(), serviceName)
	defer cleanupPublisher()
	checkoutActivities := orderactivities.NewActivities(api.NewOrderService(cfg, repos, publisher, logger))

	temporalClient, err := api.ConnectTemporalClient(cfg, instruments)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.CartCheckoutTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.CartCheckoutWorkflow, workflow.RegisterOptions{Name: orderworkflows.CartCheckoutWorkflowName})
	w.RegisterActivityWithOptions(checkoutActivities.PrepareCheckout, activity.RegisterOptions{Name: orderactivities.PrepareCheckoutActivityName})
	w.RegisterActivityWithOptions(checkoutActivities.ReserveLine, activity.RegisterOptions{Name: orderactivities.ReserveLineActivityName})
	w.RegisterActivityWithOptions(checkoutActivities.ReleaseLine, activity.RegisterOptions{Name: orderactivities.ReleaseLineActivityName})
	w.RegisterActivityWithOptions(checkoutActivities.RecordOrder, activity.RegisterOptions{Name: orderactivities.RecordOrderActivityName})
	w.RegisterActivityWithOptions(checkoutActivities.AnnouncePlacement, activity.RegisterOptions{Name: orderactivities.AnnouncePlacementActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.CartCheckoutTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
