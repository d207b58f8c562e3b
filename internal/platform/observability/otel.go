package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Instruments bundles the process-wide logger, OpenTelemetry providers and the
// Prometheus registry behind /metrics.
type Instruments struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Registry       *prometheus.Registry
}

// Settings is the environment-derived telemetry configuration.
type Settings struct {
	ServiceName    string
	Environment    string
	LogLevel       slog.Level
	LogFormat      string
	TracesExporter string
	MetricsExport  string
	SampleRatio    float64
	MetricInterval time.Duration
}

// SettingsFromEnv reads LOG_LEVEL, LOG_FORMAT, OTEL_TRACES_EXPORTER (otlp|stdout|none),
// OTEL_METRICS_EXPORTER (otlp|none), OTEL_TRACES_SAMPLER_ARG and OTEL_METRIC_EXPORT_INTERVAL (ms).
func SettingsFromEnv(serviceName string) Settings {
	return Settings{
		ServiceName:    serviceName,
		Environment:    envOrDefault("ENVIRONMENT", "local"),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
		LogFormat:      strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		TracesExporter: strings.ToLower(envOrDefault("OTEL_TRACES_EXPORTER", "otlp")),
		MetricsExport:  strings.ToLower(envOrDefault("OTEL_METRICS_EXPORTER", "none")),
		SampleRatio:    parseRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG")),
		MetricInterval: parseMillis(os.Getenv("OTEL_METRIC_EXPORT_INTERVAL"), 15*time.Second),
	}
}

// Init wires logging, tracing and metrics for serviceName from the environment.
// The returned shutdown flushes pending spans and metrics.
func Init(ctx context.Context, serviceName string) (*Instruments, func(context.Context) error, error) {
	return InitWithSettings(ctx, SettingsFromEnv(serviceName))
}

func InitWithSettings(ctx context.Context, settings Settings) (*Instruments, func(context.Context) error, error) {
	logger := newLogger(os.Stdout, settings)
	slog.SetDefault(logger)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", settings.ServiceName),
			attribute.String("deployment.environment", settings.Environment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	tracerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.SampleRatio))),
	}
	if exporter := newSpanExporter(ctx, settings.TracesExporter, logger); exporter != nil {
		tracerOpts = append(tracerOpts, sdktrace.WithBatcher(exporter))
	}
	tracerProvider := sdktrace.NewTracerProvider(tracerOpts...)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	meterProvider := newMeterProvider(ctx, res, settings, logger)
	otel.SetMeterProvider(meterProvider)

	instruments := &Instruments{
		Logger:         logger,
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Registry:       newRegistry(),
	}
	shutdown := func(ctx context.Context) error {
		return errors.Join(meterProvider.Shutdown(ctx), tracerProvider.Shutdown(ctx))
	}
	return instruments, shutdown, nil
}

func (i *Instruments) Tracer(name string) trace.Tracer {
	if i == nil || i.TracerProvider == nil {
		return otel.Tracer(name)
	}
	return i.TracerProvider.Tracer(name)
}

func (i *Instruments) Meter(name string) metric.Meter {
	if i == nil || i.MeterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(name)
	}
	return i.MeterProvider.Meter(name)
}

// newSpanExporter returns nil for "none". An OTLP exporter that cannot be
// built degrades to stdout.
func newSpanExporter(ctx context.Context, kind string, logger *slog.Logger) sdktrace.SpanExporter {
	switch kind {
	case "none":
		return nil
	case "stdout", "console":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			logger.Warn("stdout trace exporter unavailable", slog.String("error", err.Error()))
			return nil
		}
		return exporter
	}
	opts := []otlptracehttp.Option{}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "0" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err == nil {
		return exporter
	}
	logger.Warn("OTLP trace exporter unavailable, falling back to stdout", slog.String("error", err.Error()))
	return newSpanExporter(ctx, "stdout", logger)
}

func newMeterProvider(ctx context.Context, res *resource.Resource, settings Settings, logger *slog.Logger) *sdkmetric.MeterProvider {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if settings.MetricsExport == "otlp" {
		exporterOpts := []otlpmetrichttp.Option{}
		if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "0" {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err == nil {
			opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(settings.MetricInterval))))
			return sdkmetric.NewMeterProvider(opts...)
		}
		logger.Warn("OTLP metric exporter unavailable", slog.String("error", err.Error()))
	}
	opts = append(opts, sdkmetric.WithReader(sdkmetric.NewManualReader()))
	return sdkmetric.NewMeterProvider(opts...)
}

func parseRatio(raw string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 1
	}
	return ratio
}

func parseMillis(raw string, fallback time.Duration) time.Duration {
	ms, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
