package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the process registry, or the default one when
// instruments were never initialised.
func (i *Instruments) MetricsHandler() http.Handler {
	if i == nil || i.Registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(i.Registry, promhttp.HandlerOpts{Registry: i.Registry})
}

func (i *Instruments) PrometheusRegisterer() prometheus.Registerer {
	if i == nil || i.Registry == nil {
		return prometheus.DefaultRegisterer
	}
	return i.Registry
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
