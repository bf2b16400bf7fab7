// Package metrics exposes Prometheus collectors for stock and service-order activity.
// All recorder methods are nil-safe so services can run without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Inventory records ledger activity.
type Inventory struct {
	movements     *prometheus.CounterVec
	units         *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	reconcileTime *prometheus.HistogramVec
}

// NewInventory registers the inventory metrics on the provided registerer.
func NewInventory(reg prometheus.Registerer) *Inventory {
	if reg == nil {
		return &Inventory{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Ledger entries written, by movement kind.",
	}, []string{"kind"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movement_units_total",
		Help: "Units moved, by movement kind.",
	}, []string{"kind"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_operation_rejections_total",
		Help: "Stock operations rejected, by error code.",
	}, []string{"code"})
	reconcileTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_reconciliation_duration_seconds",
		Help:    "Duration of order deduction and reversal runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(movements, units, rejections, reconcileTime)
	return &Inventory{
		movements:     movements,
		units:         units,
		rejections:    rejections,
		reconcileTime: reconcileTime,
	}
}

// ObserveMovement counts one ledger entry of kind moving qty units.
func (m *Inventory) ObserveMovement(kind string, qty int) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(kind)).Inc()
	m.units.WithLabelValues(normalizeLabel(kind)).Add(float64(qty))
}

// IncRejected counts a rejected stock operation.
func (m *Inventory) IncRejected(code string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(code)).Inc()
}

// ObserveReconciliation records how long a deduction or reversal took.
func (m *Inventory) ObserveReconciliation(operation string, err error, d time.Duration) {
	if m == nil || m.reconcileTime == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reconcileTime.WithLabelValues(normalizeLabel(operation), outcome).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
