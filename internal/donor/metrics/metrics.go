package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donor module.
type Metrics struct {
	// Registration outcomes: created, validation_failed, conflict, error
	Registrations *prometheus.CounterVec

	// Login outcomes: success, invalid_credentials, inactive, error
	Logins *prometheus.CounterVec

	// Validation failures by field
	ValidationFailures *prometheus.CounterVec

	// Secret derivation latency (PBKDF2 is deliberately slow)
	SecretDerivation prometheus.Histogram

	// Tokens minted
	TokensMinted prometheus.Counter
}

// New creates a Metrics instance with all donor module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donaria_donor_registrations_total",
			Help: "Total donor registration attempts by outcome",
		}, []string{"outcome"}),

		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donaria_donor_logins_total",
			Help: "Total donor login attempts by outcome",
		}, []string{"outcome"}),

		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donaria_donor_validation_failures_total",
			Help: "Total field validation failures by field",
		}, []string{"field"}),

		SecretDerivation: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "donaria_donor_secret_derivation_seconds",
			Help:    "Duration of password secret derivation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		TokensMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donaria_donor_tokens_minted_total",
			Help: "Total bearer tokens minted",
		}),
	}
}

// IncrementRegistration records a registration outcome.
func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

// IncrementLogin records a login outcome.
func (m *Metrics) IncrementLogin(outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(outcome).Inc()
	}
}

// IncrementValidationFailure records a field validation failure.
func (m *Metrics) IncrementValidationFailure(field string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(field).Inc()
	}
}

// ObserveSecretDerivation records the duration of one secret derivation.
func (m *Metrics) ObserveSecretDerivation(d time.Duration) {
	if m != nil {
		m.SecretDerivation.Observe(d.Seconds())
	}
}

// IncrementTokenMinted records a minted token.
func (m *Metrics) IncrementTokenMinted() {
	if m != nil {
		m.TokensMinted.Inc()
	}
}
