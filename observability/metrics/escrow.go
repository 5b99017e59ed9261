package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics tracks purchase state machine activity for operators.
type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	heldFunds   prometheus.Gauge
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

// Escrow returns the process-wide escrow metrics registry.
func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_transitions_total",
				Help: "Count of successful purchase state transitions by operation.",
			}, []string{"op"}),
			heldFunds: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "escrow_held_funds",
				Help: "Total funds currently held in escrow custody, in base units.",
			}),
		}
		prometheus.MustRegister(
			escrowRegistry.transitions,
			escrowRegistry.heldFunds,
		)
	})
	return escrowRegistry
}

// ObserveTransition records a successful state transition.
func (m *EscrowMetrics) ObserveTransition(op string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op).Inc()
}

// AddHeldFunds records funds entering custody.
func (m *EscrowMetrics) AddHeldFunds(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.heldFunds.Add(value)
}

// SubHeldFunds records funds leaving custody.
func (m *EscrowMetrics) SubHeldFunds(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	m.heldFunds.Sub(value)
}
