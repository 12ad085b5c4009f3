package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RetryMetrics tracks retry behavior for the backup orchestrator's retry
// loop (C8's execute_backup retry policy).
//
// Labels:
//   - operation: the orchestrator operation name ("backup" is the only value recorded)
//   - outcome: "success", "failure", or "cancelled"
//   - error_type: classification bucket from the backup orchestrator's errorTypeLabel
type RetryMetrics struct {
	AttemptsTotal      *prometheus.CounterVec
	BackoffSeconds     *prometheus.HistogramVec
	FinalAttemptsTotal *prometheus.HistogramVec
}

// NewRetryMetrics creates retry metrics registered under namespace. Exported
// (unlike the OperationsMetrics/VaultMetrics constructors); its only caller
// in this module is Registry.Retry.
func NewRetryMetrics(namespace string) *RetryMetrics {
	return &RetryMetrics{
		AttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retry",
				Name:      "attempts_total",
				Help:      "Total retry attempts by operation, outcome, and error type",
			},
			[]string{"operation", "outcome", "error_type"},
		),
		BackoffSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retry",
				Name:      "backoff_seconds",
				Help:      "Backoff delay observed before each retry attempt",
				Buckets:   []float64{0.1, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"operation"},
		),
		FinalAttemptsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "retry",
				Name:      "final_attempts_total",
				Help:      "Number of attempts made until final success or failure",
				Buckets:   []float64{1, 2, 3, 4, 5, 10},
			},
			[]string{"operation", "outcome"},
		),
	}
}

// RecordAttempt records a single retry attempt.
func (m *RetryMetrics) RecordAttempt(operation, outcome, errorType string) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(operation, outcome, errorType).Inc()
}

// RecordBackoff records the backoff delay, in seconds, before a retry attempt.
func (m *RetryMetrics) RecordBackoff(operation string, delaySeconds float64) {
	if m == nil {
		return
	}
	m.BackoffSeconds.WithLabelValues(operation).Observe(delaySeconds)
}

// RecordFinalAttempt records how many attempts an operation took in total.
func (m *RetryMetrics) RecordFinalAttempt(operation, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.FinalAttemptsTotal.WithLabelValues(operation, outcome).Observe(float64(attempts))
}
