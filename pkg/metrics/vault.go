package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VaultMetrics tracks credential vault access patterns: unlock attempts,
// lockouts, and per-kind credential reads/writes. Never carries secret
// values or repository names as label values — only the fixed kind/result
// enums, per spec.md's invariant that credentials never appear in metrics.
type VaultMetrics struct {
	UnlockAttemptsTotal *prometheus.CounterVec
	LockoutsTotal       prometheus.Counter
	AccessTotal         *prometheus.CounterVec
	State               prometheus.Gauge
}

func newVaultMetrics(namespace string) *VaultMetrics {
	return &VaultMetrics{
		UnlockAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "vault",
				Name:      "unlock_attempts_total",
				Help:      "Total vault unlock attempts by method and result",
			},
			[]string{"method", "result"},
		),
		LockoutsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "vault",
				Name:      "lockouts_total",
				Help:      "Total number of times the vault entered lockout after repeated failures",
			},
		),
		AccessTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "vault",
				Name:      "access_total",
				Help:      "Total credential reads/writes by kind and operation",
			},
			[]string{"kind", "operation"},
		),
		State: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "vault",
				Name:      "state",
				Help:      "Current vault state: 0=locked, 1=unlocked",
			},
		),
	}
}
