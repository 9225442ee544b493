package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Confirmation outcomes.
const (
	OutcomeConfirmed     = "confirmed"
	OutcomeReplayed      = "replayed"
	OutcomeNotPaid       = "not_paid"
	OutcomeProviderError = "provider_error"
	OutcomeStorageError  = "storage_error"
	OutcomeInconsistent  = "inconsistent"
	OutcomePartial       = "partial_failure"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry      *prometheus.Registry
	confirmations *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parcel",
		Subsystem: "payment",
		Name:      "confirmations_total",
		Help:      "Payment confirmation attempts by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(confirmations)

	return &Metrics{registry: registry, confirmations: confirmations}
}

// RecordConfirmation is safe to call on a nil *Metrics.
func (m *Metrics) RecordConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
