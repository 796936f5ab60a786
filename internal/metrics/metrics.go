package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels plans the generator judged usable.
	OutcomeSuccess = "success"
	// OutcomeEscalated labels plans handed to a human.
	OutcomeEscalated = "escalated"

	// FeedbackApplied labels feedback matched to a retained plan.
	FeedbackApplied = "applied"
	// FeedbackNotFound labels feedback for an unknown or evicted plan.
	FeedbackNotFound = "not_found"
)

const namespace = "mirador_resolver"

var (
	errorsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_recorded_total",
			Help:      "Error records ingested, partitioned by error type.",
		},
		[]string{"error_type"},
	)

	plansGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_generated_total",
			Help:      "Resolution plans generated, partitioned by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	planGenerationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_generation_seconds",
			Help:      "Wall-clock cost of generating a resolution plan.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1},
		},
	)

	feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Outcome feedback submissions, partitioned by result.",
		},
		[]string{"result"},
	)

	alertsRaisedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts raised, partitioned by rule.",
		},
		[]string{"rule"},
	)

	intakeLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_lines_total",
			Help:      "Log lines read by the tailer, partitioned by whether they classified as an error.",
		},
		[]string{"classified"},
	)
)

// Register attaches mirador-resolver collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		errorsRecordedTotal,
		plansGeneratedTotal,
		planGenerationSeconds,
		feedbackTotal,
		alertsRaisedTotal,
		intakeLinesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveError counts an ingested error record.
func ObserveError(errorType string) {
	if errorType == "" {
		errorType = "UNKNOWN"
	}
	errorsRecordedTotal.WithLabelValues(errorType).Inc()
}

// ObservePlan records a generated plan's strategy, outcome and generation cost.
func ObservePlan(strategy string, success bool, duration time.Duration) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeEscalated
	}
	plansGeneratedTotal.WithLabelValues(strategy, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	planGenerationSeconds.Observe(duration.Seconds())
}

// ObserveFeedback counts a feedback submission.
func ObserveFeedback(applied bool) {
	label := FeedbackNotFound
	if applied {
		label = FeedbackApplied
	}
	feedbackTotal.WithLabelValues(label).Inc()
}

// ObserveAlert counts a raised alert.
func ObserveAlert(rule string) {
	alertsRaisedTotal.WithLabelValues(rule).Inc()
}

// ObserveIntakeLine counts a tailed log line.
func ObserveIntakeLine(classified bool) {
	label := "false"
	if classified {
		label = "true"
	}
	intakeLinesTotal.WithLabelValues(label).Inc()
}
