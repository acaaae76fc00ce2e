package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the limit counters.
const (
	OutcomeAllowed   = "allowed"
	OutcomeRejected  = "rejected"
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// LimitMetrics counts cart validations, spend updates and bulk batches.
type LimitMetrics struct {
	validations  *prometheus.CounterVec
	violations   *prometheus.CounterVec
	spendUpdates *prometheus.CounterVec
	bulkBatches  *prometheus.CounterVec
	bulkUpdated  *prometheus.CounterVec
}

// NewLimitMetrics registers the limit counters on reg. A nil registerer yields a no-op recorder.
func NewLimitMetrics(reg prometheus.Registerer) *LimitMetrics {
	if reg == nil {
		return &LimitMetrics{}
	}
	m := &LimitMetrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartlimits_cart_validations_total",
			Help: "Cart validations by outcome.",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartlimits_limit_violations_total",
			Help: "Limit violations reported to checkout by rule.",
		}, []string{"rule"}),
		spendUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartlimits_spend_updates_total",
			Help: "Order events processed by the spend accumulator by outcome.",
		}, []string{"outcome"}),
		bulkBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartlimits_bulk_batches_total",
			Help: "Bulk metafield batches by limit kind and outcome.",
		}, []string{"kind", "outcome"}),
		bulkUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cartlimits_bulk_customers_updated_total",
			Help: "Customers updated by bulk applies.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.validations, m.violations, m.spendUpdates, m.bulkBatches, m.bulkUpdated)
	return m
}

// ObserveValidation records one cart validation and the rules it tripped.
func (m *LimitMetrics) ObserveValidation(rules []string) {
	if m == nil || m.validations == nil {
		return
	}
	if len(rules) == 0 {
		m.validations.WithLabelValues(OutcomeAllowed).Inc()
		return
	}
	m.validations.WithLabelValues(OutcomeRejected).Inc()
	for _, rule := range rules {
		m.violations.WithLabelValues(normalizeLabel(rule)).Inc()
	}
}

// IncSpendUpdate counts one processed order event.
func (m *LimitMetrics) IncSpendUpdate(outcome string) {
	if m == nil || m.spendUpdates == nil {
		return
	}
	m.spendUpdates.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveBulkBatch counts one bulk batch and the customers it updated.
func (m *LimitMetrics) ObserveBulkBatch(kind string, updated int, err error) {
	if m == nil || m.bulkBatches == nil {
		return
	}
	outcome := OutcomeApplied
	if err != nil {
		outcome = OutcomeFailed
	}
	m.bulkBatches.WithLabelValues(normalizeLabel(kind), outcome).Inc()
	if updated > 0 {
		m.bulkUpdated.WithLabelValues(normalizeLabel(kind)).Add(float64(updated))
	}
}
