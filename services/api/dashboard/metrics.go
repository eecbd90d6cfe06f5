package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks dashboard generation. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	inflight prometheus.Gauge
}

// NewMetrics registers the dashboard collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gewaesser",
			Subsystem: "dashboard",
			Name:      "generations_total",
			Help:      "Dashboard generation attempts by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gewaesser",
			Subsystem: "dashboard",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of dashboard generation including the engine run.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gewaesser",
			Subsystem: "dashboard",
			Name:      "engine_runs_in_flight",
			Help:      "Engine processes currently running.",
		}),
	}
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) engineStarted() {
	if m != nil {
		m.inflight.Inc()
	}
}

func (m *Metrics) engineStopped() {
	if m != nil {
		m.inflight.Dec()
	}
}

// Outcome classifies a Generate result for metrics and logs.
func Outcome(res Result, err error) string {
	var toolErr *ExternalToolError
	switch {
	case err == nil && res.NoData:
		return "no_data"
	case err == nil:
		return "success"
	case errors.As(err, &toolErr):
		return "tool_error"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrDataUnavailable):
		return "unavailable"
	case errors.Is(err, ErrQueryFailed):
		return "query_failed"
	case errors.Is(err, ErrArtifactNotFound), errors.Is(err, ErrAmbiguousArtifact):
		return "artifact_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
