package metrics

import "github.com/prometheus/client_golang/prometheus"

// Orders records service-order lifecycle activity.
type Orders struct {
	transitions *prometheus.CounterVec
}

// NewOrders registers the service-order metrics on the provided registerer.
func NewOrders(reg prometheus.Registerer) *Orders {
	if reg == nil {
		return &Orders{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "service_order_transitions_total",
		Help: "Status transitions applied to service orders.",
	}, []string{"from", "to"})
	reg.MustRegister(transitions)
	return &Orders{transitions: transitions}
}

// IncTransition counts a status change. from is empty for creation.
func (m *Orders) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(from, normalizeLabel(to)).Inc()
}
