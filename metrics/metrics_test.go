package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	m.MustRegister(registry)

	m.ObserveCompilation(time.Millisecond, nil)
	m.ObserveCompilation(2*time.Millisecond, errors.New("boom"))
	m.ObserveEvaluation(time.Millisecond, true, nil)
	m.ObserveEvaluation(time.Millisecond, false, nil)
	m.ObserveEvaluation(time.Millisecond, false, errors.New("circular"))
	m.IncFetch(nil)

	assert.Equal(t, 2, testutil.CollectAndCount(m.compilationTime))
	assert.Equal(t, 3, testutil.CollectAndCount(m.evaluationTime))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.fetches.WithLabelValues("success")))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["jsonskema_schema_compilation_duration_seconds"])
	assert.True(t, names["jsonskema_schema_evaluation_duration_seconds"])
	assert.True(t, names["jsonskema_schema_reference_fetches_total"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveCompilation(time.Second, nil)
		m.ObserveEvaluation(time.Second, true, nil)
		m.IncFetch(nil)
	})
}
