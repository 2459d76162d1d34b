// Package metrics exposes Prometheus collectors for schema compilation,
// evaluation and reference fetching.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "jsonskema"
	subsystem = "schema"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	compilationTime *prometheus.HistogramVec
	evaluationTime  *prometheus.HistogramVec
	fetches         *prometheus.CounterVec
}

// New creates an unregistered set of collectors.
func New() *Metrics {
	return &Metrics{
		compilationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compilation_duration_seconds",
				Help:      "Schema compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~160ms
			},
			[]string{"result"}, // "success" or "error"
		),
		evaluationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Instance evaluation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
			},
			[]string{"result"}, // "valid", "invalid" or "error"
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reference_fetches_total",
				Help:      "External schema fetches issued by registries.",
			},
			[]string{"result"},
		),
	}
}

// ObserveCompilation records a compilation duration.
func (m *Metrics) ObserveCompilation(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.compilationTime.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveEvaluation records an evaluation duration and its outcome.
func (m *Metrics) ObserveEvaluation(d time.Duration, valid bool, err error) {
	if m == nil {
		return
	}
	result := "valid"
	switch {
	case err != nil:
		result = "error"
	case !valid:
		result = "invalid"
	}
	m.evaluationTime.WithLabelValues(result).Observe(d.Seconds())
}

// IncFetch counts one external fetch.
func (m *Metrics) IncFetch(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.compilationTime)
	registry.MustRegister(m.evaluationTime)
	registry.MustRegister(m.fetches)
}
