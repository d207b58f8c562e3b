package events

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.EventPublisher = (*Instrumented)(nil)

// Instrumented records publish outcomes and latency per transport.
type Instrumented struct {
	next      ports.EventPublisher
	transport string
	published *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// PublisherMetrics are shared by all instrumented transports on one registry.
type PublisherMetrics struct {
	published *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	factory := promauto.With(reg)
	return &PublisherMetrics{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orders",
			Name:      "events_published_total",
			Help:      "Domain events handed to a transport, by outcome.",
		}, []string{"transport", "event", "outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orders",
			Name:      "event_publish_duration_seconds",
			Help:      "Time spent handing an event to a transport.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
	}
}

// Wrap decorates next with this metric set.
func (m *PublisherMetrics) Wrap(transport string, next ports.EventPublisher) *Instrumented {
	return &Instrumented{next: next, transport: transport, published: m.published, latency: m.latency}
}

func (p *Instrumented) Publish(ctx context.Context, event domain.Event) error {
	start := time.Now()
	err := p.next.Publish(ctx, event)
	p.latency.WithLabelValues(p.transport).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.published.WithLabelValues(p.transport, event.EventName(), outcome).Inc()
	return err
}
