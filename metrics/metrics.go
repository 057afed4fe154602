package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ClassifyTotal counts classification attempts by outcome.
	ClassifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crimewatch",
		Subsystem: "analysis",
		Name:      "classify_total",
		Help:      "Total number of media classification attempts, labeled by result.",
	}, []string{"result"})

	// ClassifyDurationSeconds is the time spent per classification attempt.
	ClassifyDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crimewatch",
		Subsystem: "analysis",
		Name:      "classify_duration_seconds",
		Help:      "Time to classify a single report's media, labeled by result.",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"result"})

	// WorkflowDispositionTotal counts finished workflow runs by disposition.
	WorkflowDispositionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crimewatch",
		Subsystem: "analysis",
		Name:      "workflow_disposition_total",
		Help:      "Total number of completed analysis workflow runs, labeled by disposition.",
	}, []string{"disposition"})

	// ReviewRequiredTotal counts workflow runs flagged for human review.
	ReviewRequiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crimewatch",
		Subsystem: "analysis",
		Name:      "review_required_total",
		Help:      "Total number of reports the workflow flagged for human review.",
	})

	// VerifyDecisionTotal counts human verification decisions.
	VerifyDecisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crimewatch",
		Subsystem: "verification",
		Name:      "decision_total",
		Help:      "Total number of human verification decisions, labeled by decision.",
	}, []string{"decision"})

	// RewardTransferTotal counts reward transfer attempts by result.
	RewardTransferTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crimewatch",
		Subsystem: "reward",
		Name:      "transfer_total",
		Help:      "Total number of reward transfer attempts, labeled by result.",
	}, []string{"result"})
)

// Register registers crimewatch metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ClassifyTotal,
			ClassifyDurationSeconds,
			WorkflowDispositionTotal,
			ReviewRequiredTotal,
			VerifyDecisionTotal,
			RewardTransferTotal,
		)
	})
}
