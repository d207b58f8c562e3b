package api

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	customermemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/adapters/memory"
	customerpostgres "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/adapters/persistence/postgres"
	customerports "github.com/seboge-Atlegang/part3Cloud/internal/domains/customers/ports"
	inventorymemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/adapters/memory"
	inventorypostgres "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/adapters/persistence/postgres"
	inventoryports "github.com/seboge-Atlegang/part3Cloud/internal/domains/inventory/ports"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events"
	eventskafka "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events/kafka"
	eventsmemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events/memory"
	eventsrabbitmq "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/events/rabbitmq"
	ordersmemory "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/memory"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/notifications"
	orderspostgres "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/application"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	ordersports "github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
	"github.com/seboge-Atlegang/part3Cloud/internal/platform/messaging"
	"github.com/seboge-Atlegang/part3Cloud/internal/platform/migrations"
	platformobservability "github.com/seboge-Atlegang/part3Cloud/internal/platform/observability"
	platformpostgres "github.com/seboge-Atlegang/part3Cloud/internal/platform/postgres"
)

// Repositories bundles the storage adapters behind the orders service.
type Repositories struct {
	Inventory   inventoryports.Store
	Catalog     inventoryports.Catalog
	Customers   customerports.Repository
	Ledger      ordersports.Ledger
	Idempotency ordersports.IdempotencyStore
	Durable     bool
}

// BuildRepositories uses PostgreSQL when a DSN is configured and reachable and
// falls back to in-memory adapters otherwise.
func BuildRepositories(ctx context.Context, cfg Config, logger *slog.Logger) (Repositories, func()) {
	db, cleanup := platformpostgres.Open(ctx, cfg.PostgresDSN, logger)
	if db != nil {
		if err := migrations.Run(db); err != nil {
			logger.Warn("failed to migrate postgres schema, falling back to in-memory repositories", slog.String("error", err.Error()))
			cleanup()
			db = nil
		}
	}
	if db == nil {
		inventory := inventorymemory.NewStore()
		return Repositories{
			Inventory:   inventory,
			Catalog:     inventory,
			Customers:   customermemory.NewRepository(),
			Ledger:      ordersmemory.NewLedger(),
			Idempotency: ordersmemory.NewIdempotencyStore(),
		}, func() {}
	}
	inventory := inventorypostgres.NewStore(db)
	logger.Info("order repositories configured with postgres")
	return Repositories{
		Inventory:   inventory,
		Catalog:     inventory,
		Customers:   customerpostgres.NewRepository(db),
		Ledger:      orderspostgres.NewLedger(db),
		Idempotency: orderspostgres.NewIdempotencyStore(db),
		Durable:     true,
	}, cleanup
}

// NewOrderService builds the core application service with the configured retry budget.
func NewOrderService(cfg Config, repos Repositories, publisher ordersports.EventPublisher, logger *slog.Logger) *ordersapp.Service {
	policy := ordersapp.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.ReserveAttempts
	policy.Backoff = cfg.ReserveBackoff
	return ordersapp.NewService(
		repos.Ledger,
		repos.Inventory,
		repos.Customers,
		ordersapp.WithLogger(logger),
		ordersapp.WithRetryPolicy(policy),
		ordersapp.WithPublisher(publisher),
		ordersapp.WithIdempotencyStore(repos.Idempotency),
	)
}

// BuildPublisher assembles the configured event transports behind Prometheus
// instrumentation. Broker failures fall back to the in-process bus.
func BuildPublisher(ctx context.Context, cfg Config, logger *slog.Logger, reg prometheus.Registerer, appID string) (ordersports.EventPublisher, func()) {
	metrics := events.NewPublisherMetrics(reg)
	var (
		sinks    events.Fanout
		cleanups []func()
	)
	if cfg.UsesRabbitMQ() {
		if publisher, closeFn, err := dialRabbitPublisher(ctx, cfg, appID); err != nil {
			logger.Warn("rabbitmq publisher unavailable", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, metrics.Wrap(EventsBackendRabbitMQ, publisher))
			cleanups = append(cleanups, closeFn)
			logger.Info("rabbitmq event publisher enabled", slog.String("exchange", events.Exchange))
		}
	}
	if cfg.UsesKafka() {
		if publisher, err := newKafkaPublisher(cfg); err != nil {
			logger.Warn("kafka publisher unavailable", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, metrics.Wrap(EventsBackendKafka, publisher))
			cleanups = append(cleanups, func() { _ = publisher.Close() })
			logger.Info("kafka event publisher enabled", slog.String("topic", cfg.KafkaTopic))
		}
	}
	if len(sinks) == 0 {
		if cfg.EventsBackend != EventsBackendMemory {
			logger.Warn("no broker reachable, publishing events on the in-process bus")
		}
		bus := NewNotificationBus(ctx, logger)
		sinks = append(sinks, metrics.Wrap(EventsBackendMemory, bus))
		cleanups = append(cleanups, func() { bus.Stop(context.Background()) })
	}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	if len(sinks) == 1 {
		return sinks[0], cleanup
	}
	return sinks, cleanup
}

// NewNotificationBus starts an in-process bus that delivers every event to the notifier.
func NewNotificationBus(ctx context.Context, logger *slog.Logger) *eventsmemory.Bus {
	bus := eventsmemory.NewBus(logger)
	notifier := notifications.NewNotifier(logger)
	for _, name := range []string{domain.EventOrderCreated, domain.EventStockUpdated, domain.EventOrderStatusUpdated} {
		bus.Subscribe(name, notifier.Handle)
	}
	bus.Start(context.WithoutCancel(ctx))
	return bus
}

func dialRabbitPublisher(ctx context.Context, cfg Config, appID string) (*eventsrabbitmq.Publisher, func(), error) {
	conn, err := messaging.DialRabbitMQ(ctx, cfg.RabbitMQURL, appID, 3)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := eventsrabbitmq.NewPublisher(conn, appID)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return publisher, func() {
		_ = publisher.Close()
		_ = conn.Close()
	}, nil
}

func newKafkaPublisher(cfg Config) (*eventskafka.Publisher, error) {
	writer, err := messaging.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	return eventskafka.NewPublisher(writer)
}

// ConnectTemporalClient dials Temporal with tracing and structured logging.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
