package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OperationsMetrics tracks the lifecycle of backup/restore/verify/prune
// operations driven by the orchestrator.
//
// Labels:
//   - operation_type: backup, restore, verify, check, prune, forget, mount
//   - status: the terminal OperationStatus.status value
type OperationsMetrics struct {
	RunsTotal       *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
	InFlight        *prometheus.GaugeVec
	BytesTotal      *prometheus.CounterVec
}

func newOperationsMetrics(namespace string) *OperationsMetrics {
	return &OperationsMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operations",
				Name:      "runs_total",
				Help:      "Total number of orchestrated operations by type and terminal status",
			},
			[]string{"operation_type", "status"},
		),
		DurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "operations",
				Name:      "duration_seconds",
				Help:      "Duration of orchestrated operations from pending to terminal status",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
			},
			[]string{"operation_type", "status"},
		),
		InFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "operations",
				Name:      "in_flight",
				Help:      "Number of operations currently running",
			},
			[]string{"operation_type"},
		),
		BytesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operations",
				Name:      "bytes_total",
				Help:      "Total bytes added (backup) or restored (restore)",
			},
			[]string{"operation_type"},
		),
	}
}
