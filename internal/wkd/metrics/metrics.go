// Package metrics holds the Prometheus instruments for WKD lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for MethodOutcomes.
const (
	OutcomeKey          = "key_found"
	OutcomeTransport    = "transport_error"
	OutcomeStatus       = "status_error"
	OutcomeMalformedKey = "malformed_key"
	OutcomeNoKeyFound   = "no_key_found"
)

// Metrics provides observability for the lookup service.
type Metrics struct {
	// Full lookup latency, both methods included
	LookupLatency prometheus.Histogram

	// Per-method latency
	MethodLatency *prometheus.HistogramVec

	// Per-method outcomes
	MethodOutcomes *prometheus.CounterVec

	InvalidUserIDs prometheus.Counter
}

// New creates the lookup metrics and registers them with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LookupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wkd_lookup_duration_seconds",
			Help:    "Duration of a full WKD lookup including both methods",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),

		MethodLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wkd_method_duration_seconds",
			Help:    "Duration of a single WKD method check",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}), // method: "direct", "advanced"

		MethodOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wkd_method_outcomes_total",
			Help: "WKD method results by method and outcome",
		}, []string{"method", "outcome"}),

		InvalidUserIDs: factory.NewCounter(prometheus.CounterOpts{
			Name: "wkd_invalid_user_ids_total",
			Help: "Lookups rejected because the user ID was not an email address",
		}),
	}
}

// ObserveLookupLatency records the duration of a full lookup.
func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}

// ObserveMethodLatency records the duration of one method.
func (m *Metrics) ObserveMethodLatency(method string, d time.Duration) {
	if m != nil {
		m.MethodLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}

// IncrementOutcome records how a method finished.
func (m *Metrics) IncrementOutcome(method, outcome string) {
	if m != nil {
		m.MethodOutcomes.WithLabelValues(method, outcome).Inc()
	}
}

// IncrementInvalidUserID counts a rejected user ID.
func (m *Metrics) IncrementInvalidUserID() {
	if m != nil {
		m.InvalidUserIDs.Inc()
	}
}
