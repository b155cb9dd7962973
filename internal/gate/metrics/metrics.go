package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the gate module.
type Metrics struct {
	// Movement outcomes by direction and decision
	MovementOutcome *prometheus.CounterVec

	// Guarded-write conflicts by direction
	WriteConflicts *prometheus.CounterVec

	// Full register latency including ledger merge and store writes
	RegisterLatency prometheus.Histogram
}

// New creates a Metrics instance with all gate module metrics registered.
func New() *Metrics {
	return &Metrics{
		MovementOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "porteria_gate_movements_total",
			Help: "Total gate movement decisions by direction and decision",
		}, []string{"direction", "decision"}), // decision: "allowed", "denied", "conflict"

		WriteConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "porteria_gate_write_conflicts_total",
			Help: "Guarded movement writes lost to a concurrent client",
		}, []string{"direction"}),

		RegisterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "porteria_gate_register_duration_seconds",
			Help:    "Duration of full movement registration including ledger merge",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOutcome records a movement decision.
func (m *Metrics) IncrementOutcome(direction, decision string) {
	if m != nil {
		m.MovementOutcome.WithLabelValues(direction, decision).Inc()
	}
}

// IncrementConflict records a guarded write lost to a concurrent client.
func (m *Metrics) IncrementConflict(direction string) {
	if m != nil {
		m.WriteConflicts.WithLabelValues(direction).Inc()
	}
}

// ObserveRegisterLatency records the total registration duration.
func (m *Metrics) ObserveRegisterLatency(d time.Duration) {
	if m != nil {
		m.RegisterLatency.Observe(d.Seconds())
	}
}
