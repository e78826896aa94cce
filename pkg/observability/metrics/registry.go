// Package metrics exposes Prometheus metrics for document store operations.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Registry manages Prometheus metrics registration and exposure.
// It includes document store metrics and Go runtime metrics by default.
type Registry struct {
	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with default collectors:
// document operation duration and count, open cursors, and Go runtime metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(documentOperationDuration)
	reg.MustRegister(documentOperationsTotal)
	reg.MustRegister(documentCursorsOpen)

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{
		registry: reg,
	}
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// MustRegister registers custom collectors and panics on error.
func (r *Registry) MustRegister(collectors ...prometheus.Collector) {
	r.registry.MustRegister(collectors...)
}

// Unregister removes a collector from the registry.
func (r *Registry) Unregister(collector prometheus.Collector) bool {
	return r.registry.Unregister(collector)
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteText writes the metric families whose name starts with prefix in the Prometheus
// text format. An empty prefix writes everything.
func (r *Registry) WriteText(w io.Writer, prefix string) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", family.GetName(), err)
		}
	}
	return nil
}
