package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Workflow transitions by action and outcome
	Transitions *prometheus.CounterVec
}

// New creates a Metrics instance with all registration module metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "porteria_registration_transitions_total",
			Help: "Registration workflow transitions by action and outcome",
		}, []string{"action", "outcome"}), // action: "submit", "approve", "reject"
	}
}

// IncrementTransition records a workflow transition.
func (m *Metrics) IncrementTransition(action, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(action, outcome).Inc()
	}
}
