package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters for order lifecycle and money movement.
type OrderMetrics struct {
	transitions   *prometheus.CounterVec
	reassignments prometheus.Counter
	ledgerEntries *prometheus.CounterVec
	cashCollected prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by from/to status.",
	}, []string{"from", "to"})
	reassignments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_reassignments_total",
		Help: "Delivery agent reassignments.",
	})
	ledgerEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_ledger_entries_total",
		Help: "Wallet ledger entries by type.",
	}, []string{"type"})
	cashCollected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cash_collections_total",
		Help: "Cash collection records written.",
	})
	reg.MustRegister(transitions, reassignments, ledgerEntries, cashCollected)
	return &OrderMetrics{
		transitions:   transitions,
		reassignments: reassignments,
		ledgerEntries: ledgerEntries,
		cashCollected: cashCollected,
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// IncTransition counts a completed status transition.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncReassignment counts an agent reassignment.
func (m *OrderMetrics) IncReassignment() {
	if m == nil || m.reassignments == nil {
		return
	}
	m.reassignments.Inc()
}

// IncLedgerEntry counts a wallet ledger entry by type.
func (m *OrderMetrics) IncLedgerEntry(entryType string) {
	if m == nil || m.ledgerEntries == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(normalizeLabel(entryType)).Inc()
}

// IncCashCollected counts a recorded cash collection.
func (m *OrderMetrics) IncCashCollected() {
	if m == nil || m.cashCollected == nil {
		return
	}
	m.cashCollected.Inc()
}
