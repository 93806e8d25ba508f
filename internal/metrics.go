package internal

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "storefront"

// Metrics holds the pipeline collectors and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors on a fresh registry together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Pipeline stage outcomes by stage, outcome and error class",
		}, []string{"stage", "outcome", "class"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
}

// Registry returns the registry so callers can add their own collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observe(stage string, kind outcomeKind, class ErrorClass, d time.Duration) {
	if m == nil {
		return
	}
	label := string(class)
	if label == "" {
		label = "none"
	}
	m.outcomes.WithLabelValues(stage, kind.String(), label).Inc()
	m.duration.WithLabelValues(stage).Observe(d.Seconds())
}
