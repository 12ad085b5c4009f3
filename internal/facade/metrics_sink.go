package facade

import (
	"github.com/auriora/timelocker/internal/status"
	"github.com/auriora/timelocker/pkg/metrics"
)

// newMetricsSink adapts the Prometheus operations metrics (pkg/metrics) to
// a status.Sink: every terminal event increments RunsTotal and adjusts
// InFlight, giving /metrics a live view of orchestrated operations without
// the orchestrators themselves importing the metrics package directly.
func newMetricsSink(registry *metrics.Registry) func(status.OperationStatus) {
	ops := registry.Operations()
	return func(e status.OperationStatus) {
		opType := string(e.OperationType)
		switch e.Status {
		case status.StatusRunning:
			ops.InFlight.WithLabelValues(opType).Inc()
		case status.StatusSuccess, status.StatusWarning, status.StatusError, status.StatusCritical, status.StatusCancelled:
			ops.RunsTotal.WithLabelValues(opType, string(e.Status)).Inc()
			ops.InFlight.WithLabelValues(opType).Dec()
		}
	}
}
