package formstate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "result" label.
const (
	resultSuccess   = "success"
	resultInvalid   = "invalid"
	resultFailed    = "failed"
	resultCancelled = "cancelled"
)

// Metrics holds the Prometheus collectors of one or more forms. A nil
// *Metrics records nothing.
type Metrics struct {
	submissions    *prometheus.CounterVec
	submitDuration *prometheus.HistogramVec
	validations    *prometheus.CounterVec
	autoTriggers   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formstate",
			Name:      "submissions_total",
			Help:      "Total number of submissions by outcome",
		}, []string{"result", "auto"}),
		submitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "formstate",
			Name:      "submit_duration_seconds",
			Help:      "Duration of submissions including validation and callback",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"result"}),
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formstate",
			Name:      "field_validations_total",
			Help:      "Total number of per-field validations by outcome",
		}, []string{"result"}),
		autoTriggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formstate",
			Name:      "auto_submit_triggers_total",
			Help:      "Total number of auto-submit triggers by event",
		}, []string{"event"}),
	}
}

func (m *Metrics) observeSubmit(result string, auto bool, d time.Duration) {
	if m == nil {
		return
	}
	a := "false"
	if auto {
		a = "true"
	}
	m.submissions.WithLabelValues(result, a).Inc()
	m.submitDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) observeValidation(valid bool) {
	if m == nil {
		return
	}
	if valid {
		m.validations.WithLabelValues("valid").Inc()
		return
	}
	m.validations.WithLabelValues("invalid").Inc()
}

func (m *Metrics) observeTrigger(event string) {
	if m == nil {
		return
	}
	m.autoTriggers.WithLabelValues(event).Inc()
}
