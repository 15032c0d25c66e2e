package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"formcheck/internal/fieldcheck/models"
)

// Metrics counts availability checks and state transitions. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ChecksIssued     prometheus.Counter
	ChecksSkipped    prometheus.Counter
	StaleResponses   prometheus.Counter
	CheckOutcomes    *prometheus.CounterVec
	CheckDuration    prometheus.Histogram
	StateTransitions *prometheus.CounterVec
	ActiveFields     prometheus.Gauge
}

// New registers the field-check metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChecksIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "formcheck_availability_checks_issued_total",
			Help: "Total number of availability queries sent to the directory",
		}),
		ChecksSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "formcheck_availability_checks_skipped_total",
			Help: "Checks superseded before their query was sent",
		}),
		StaleResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "formcheck_availability_stale_responses_total",
			Help: "Responses dropped because a newer check had been issued",
		}),
		CheckOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formcheck_availability_check_outcomes_total",
			Help: "Availability query outcomes by resulting state",
		}, []string{"outcome"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "formcheck_availability_check_duration_seconds",
			Help:    "Latency of availability queries",
			Buckets: prometheus.DefBuckets,
		}),
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formcheck_field_state_transitions_total",
			Help: "Field state transitions by target state",
		}, []string{"state"}),
		ActiveFields: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formcheck_fields_active",
			Help: "Number of currently registered fields",
		}),
	}
}

func (m *Metrics) IncrementChecksIssued() {
	if m == nil {
		return
	}
	m.ChecksIssued.Inc()
}

func (m *Metrics) IncrementChecksSkipped() {
	if m == nil {
		return
	}
	m.ChecksSkipped.Inc()
}

func (m *Metrics) IncrementStaleResponses() {
	if m == nil {
		return
	}
	m.StaleResponses.Inc()
}

// ObserveCheck records the outcome and latency of one query.
func (m *Metrics) ObserveCheck(outcome models.ValidationState, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CheckOutcomes.WithLabelValues(outcome.String()).Inc()
	m.CheckDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementStateTransitions(state models.ValidationState) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(state.String()).Inc()
}

func (m *Metrics) SetActiveFields(count int) {
	if m == nil {
		return
	}
	m.ActiveFields.Set(float64(count))
}
