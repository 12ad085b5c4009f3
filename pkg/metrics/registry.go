// Package metrics provides centralized Prometheus metrics for TimeLocker.
//
// This package implements a small taxonomy of metrics:
//   - Operations metrics: backup/restore/verify/prune lifecycle counts and durations
//   - Vault metrics: unlock attempts, lockouts, credential access counts
//   - Retry metrics: retry attempts and backoff delays for the backup orchestrator
//
// All metrics follow the naming convention:
// timelocker_<category>_<metric_name>_<unit>
//
// Example:
//
//	registry := metrics.DefaultRegistry()
//	registry.Operations().RunsTotal.WithLabelValues("backup", "success").Inc()
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricCategory represents the category of a metric.
type MetricCategory string

const (
	// CategoryOperations covers backup/restore/verify/prune lifecycle metrics.
	CategoryOperations MetricCategory = "operations"

	// CategoryVault covers credential vault access and lockout metrics.
	CategoryVault MetricCategory = "vault"

	// CategoryRetry covers backup-orchestrator retry/backoff metrics.
	CategoryRetry MetricCategory = "retry"
)

// Registry is the central registry for all Prometheus metrics exposed by
// TimeLocker's orchestration layer. Categories are lazily initialized so a
// caller that never touches vault metrics never registers vault collectors.
//
// Thread-safe. Use DefaultRegistry() for the process-wide singleton (see
// spec.md §9's note on un-globaling singletons); the integration facade
// (C12), the backup orchestrator and the vault all use it. NewRegistry is
// called only by DefaultRegistry and this package's tests.
type Registry struct {
	namespace string

	operations     *OperationsMetrics
	vault          *VaultMetrics
	retry          *RetryMetrics
	operationsOnce sync.Once
	vaultOnce      sync.Once
	retryOnce      sync.Once
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the global singleton Registry, initialized once.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry("timelocker")
	})
	return defaultRegistry
}

// NewRegistry creates a new Registry with the given namespace. Prefer
// DefaultRegistry for production use; NewRegistry is mainly useful in tests
// that want an isolated set of collectors.
func NewRegistry(namespace string) *Registry {
	if namespace == "" {
		namespace = "timelocker"
	}
	return &Registry{namespace: namespace}
}

// Operations returns the Operations metrics manager, lazily initialized.
func (r *Registry) Operations() *OperationsMetrics {
	r.operationsOnce.Do(func() {
		r.operations = newOperationsMetrics(r.namespace)
	})
	return r.operations
}

// Vault returns the Vault metrics manager, lazily initialized.
func (r *Registry) Vault() *VaultMetrics {
	r.vaultOnce.Do(func() {
		r.vault = newVaultMetrics(r.namespace)
	})
	return r.vault
}

// Retry returns the Retry metrics manager, lazily initialized.
func (r *Registry) Retry() *RetryMetrics {
	r.retryOnce.Do(func() {
		r.retry = NewRetryMetrics(r.namespace)
	})
	return r.retry
}

// Namespace returns the configured Prometheus namespace.
func (r *Registry) Namespace() string {
	return r.namespace
}

// Handler returns the standard Prometheus scrape handler. The CLI adapter
// may mount this on an operator-chosen path; the core itself never starts
// an HTTP listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
