// Package metrics owns the process-wide Prometheus registry. Domain packages
// build their own metric structs against the Registerer this package hands
// out, so no component reaches for a global.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the registry with its HTTP handler.
type Registry struct {
	registry *prometheus.Registry
}

// New creates a registry preloaded with process and Go runtime collectors.
func New() *Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{registry: registry}
}

// Registerer is handed to domain metric constructors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler serves the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
