package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seboge-Atlegang/part3Cloud/internal/app/api"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events"
	eventsrabbitmq "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events/rabbitmq"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/notifications"
	"github.com/seboge-Atlegang/part3Cloud/internal/platform/messaging"
	platformobservability "github.com/seboge-Atlegang/part3Cloud/internal/platform/observability"
)

const (
	notificationQueue = "orders.notifications"
	stockSyncQueue    = "inventory.stock-sync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	const serviceName = "orders-notifier"
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

	conn, err := messaging.DialRabbitMQ(ctx, cfg.RabbitMQURL, serviceName, 10)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	notifier := notifications.NewNotifier(logger)
	bindings := map[string][]string{
		notificationQueue: {events.OrderCreatedRoutingKey, events.OrderStatusUpdatedRoutingKey},
		stockSyncQueue:    {events.StockUpdatedRoutingKey},
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for queue, keys := range bindings {
		consumer, err := eventsrabbitmq.NewConsumer(conn, queue, keys, notifier.Handle, logger)
		if err != nil {
			logger.Error("failed to set up consumer", slog.String("queue", queue), slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer consumer.Close()
		group.Go(func() error { return consumer.Run(groupCtx) })
		logger.Info("notifier consuming", slog.String("queue", queue), slog.Any("routing_keys", keys))
	}
	if err := group.Wait(); err != nil {
		logger.Error("notifier stopped with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("notifier stopped")
}
