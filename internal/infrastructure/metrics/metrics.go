// Package metrics provides Prometheus metrics export for Stillmind Hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// SessionsRecorded counts completed meditation sessions.
	SessionsRecorded prometheus.Counter

	// DispatchOutcomes counts per-user dispatch outcomes by result.
	DispatchOutcomes *prometheus.CounterVec

	// DispatchRuns counts dispatch runs by overall status.
	DispatchRuns *prometheus.CounterVec

	// DispatchDuration observes full dispatch run latency.
	DispatchDuration prometheus.Histogram

	// Subscribers tracks the current opted-in user count.
	Subscribers prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stillmind",
			Subsystem: "meditation",
			Name:      "sessions_recorded_total",
			Help:      "Total number of completed meditation sessions recorded",
		}),
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stillmind",
			Subsystem: "reminder",
			Name:      "dispatch_outcomes_total",
			Help:      "Per-user reminder dispatch outcomes",
		}, []string{"outcome"}),
		DispatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stillmind",
			Subsystem: "reminder",
			Name:      "dispatch_runs_total",
			Help:      "Reminder dispatch runs by status",
		}, []string{"status"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stillmind",
			Subsystem: "reminder",
			Name:      "dispatch_duration_seconds",
			Help:      "Reminder dispatch run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stillmind",
			Subsystem: "reminder",
			Name:      "subscribers",
			Help:      "Currently opted-in users",
		}),
	}

	registry.MustRegister(
		m.SessionsRecorded,
		m.DispatchOutcomes,
		m.DispatchRuns,
		m.DispatchDuration,
		m.Subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
