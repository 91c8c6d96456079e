package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Turns              *prometheus.CounterVec
	Coercions          *prometheus.CounterVec
	ModelCallLatency   *prometheus.HistogramVec
	IndexWriteFailures *prometheus.CounterVec
	IndexReplays       *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome.",
		}, []string{"outcome"}),
		Coercions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercions_total",
			Help:      "Model outputs by the coercion path that produced the answer.",
		}, []string{"path"}),
		ModelCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_seconds",
			Help:      "Latency of chat completion calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider", "status"}),
		IndexWriteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_write_failures_total",
			Help:      "Semantic index writes that failed after the log write succeeded.",
		}, []string{"stage"}),
		IndexReplays: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_replays_total",
			Help:      "Queued index writes replayed by the worker pool.",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncTurn(outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCoercion(path string) {
	if m == nil {
		return
	}
	m.Coercions.WithLabelValues(path).Inc()
}

func (m *Metrics) ObserveModelCall(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelCallLatency.WithLabelValues(provider, status).Observe(d.Seconds())
}

func (m *Metrics) IncIndexWriteFailure(stage string) {
	if m == nil {
		return
	}
	m.IndexWriteFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncIndexReplay(result string) {
	if m == nil {
		return
	}
	m.IndexReplays.WithLabelValues(result).Inc()
}

func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
