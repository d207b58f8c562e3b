package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/seboge-Atlegang/part3Cloud/internal/platform/messaging"
)

// Event transport selections for EVENTS_BACKEND.
const (
	EventsBackendMemory   = "memory"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendKafka    = "kafka"
	EventsBackendBoth     = "both"
)

// Config carries environment-driven settings for the orders processes.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	EventsBackend     string
	RabbitMQURL       string
	KafkaBrokers      []string
	KafkaTopic        string
	ReserveAttempts   int
	ReserveBackoff    time.Duration
	SeedCatalog       bool
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		EventsBackend:     strings.ToLower(envDefault("EVENTS_BACKEND", EventsBackendMemory)),
		RabbitMQURL:       envDefault("RABBITMQ_URL", messaging.DefaultRabbitURL),
		KafkaBrokers:      messaging.SplitBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envDefault("KAFKA_TOPIC", messaging.DefaultKafkaTopic),
		ReserveAttempts:   3,
		ReserveBackoff:    10 * time.Millisecond,
		SeedCatalog:       isTruthy(os.Getenv("SEED_CATALOG")),
	}
	switch cfg.EventsBackend {
	case EventsBackendMemory, EventsBackendRabbitMQ, EventsBackendKafka, EventsBackendBoth:
	default:
		return Config{}, fmt.Errorf("EVENTS_BACKEND must be one of memory, rabbitmq, kafka, both")
	}
	if cfg.UsesKafka() && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND=%s", cfg.EventsBackend)
	}
	if raw := strings.TrimSpace(os.Getenv("ORDER_RESERVE_MAX_ATTEMPTS")); raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil || attempts <= 0 {
			return Config{}, fmt.Errorf("ORDER_RESERVE_MAX_ATTEMPTS must be a positive integer")
		}
		cfg.ReserveAttempts = attempts
	}
	if raw := strings.TrimSpace(os.Getenv("ORDER_RESERVE_BACKOFF_MS")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			return Config{}, fmt.Errorf("ORDER_RESERVE_BACKOFF_MS must be a non-negative integer")
		}
		cfg.ReserveBackoff = time.Duration(ms) * time.Millisecond
	}
	return cfg, nil
}

func (c Config) UsesRabbitMQ() bool {
	return c.EventsBackend == EventsBackendRabbitMQ || c.EventsBackend == EventsBackendBoth
}

func (c Config) UsesKafka() bool {
	return c.EventsBackend == EventsBackendKafka || c.EventsBackend == EventsBackendBoth
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
