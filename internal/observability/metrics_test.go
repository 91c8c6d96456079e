package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncTurn("ok")
		m.IncCoercion("strict")
		m.ObserveModelCall("fake", time.Second, nil)
		m.IncIndexWriteFailure("embed")
		m.IncIndexReplay("ok")
	})
}

func TestMetricsCount(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.IncTurn("ok")
	m.IncTurn("ok")
	m.IncCoercion("fallback")
	m.IncIndexWriteFailure("upsert")
	m.ObserveModelCall("fake", 10*time.Millisecond, errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Turns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Coercions.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexWriteFailures.WithLabelValues("upsert")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ModelCallLatency))
}
