// Package facade implements the integration facade (C12): the single
// composition root that wires together the configuration store (C2), the
// status event bus (C10), the repository factory (C5), the backup and
// restore orchestrators (C8/C9), a notifier sink, and — once a vault is
// supplied — the security service (C11). It wraps backup and restore with
// operation_start/operation_end events under an operation ID it mints, and
// with an audit hook. That ID is not passed to the orchestrators, the audit
// events or the returned result: the orchestrators mint their own ID, which
// their events and the result carry.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/auriora/timelocker/internal/backup"
	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/repository"
	"github.com/auriora/timelocker/internal/restore"
	"github.com/auriora/timelocker/internal/security"
	"github.com/auriora/timelocker/internal/status"
	"github.com/auriora/timelocker/internal/vault"
	"github.com/auriora/timelocker/pkg/metrics"
)

// Facade is the single object a CLI/UI adapter needs to construct to use
// every TimeLocker capability.
type Facade struct {
	store    *config.Store
	bus      *status.Bus
	factory  *repository.Factory
	adapter  *engine.Adapter
	backupOrch  *backup.Orchestrator
	restoreOrch *restore.Orchestrator
	vault    *vault.Vault
	security *security.Service
	logger   *slog.Logger
	registry *metrics.Registry

	notifier *Notifier
}

// Options configures New.
type Options struct {
	ConfigDir     string
	EngineBinary  string
	MaxConcurrent int
	Logger        *slog.Logger
}

// New constructs the facade's composition root: C2, C10, C5, C8, C9, and a
// notifier. The vault (and therefore C11) is attached lazily via
// AttachVault once the caller has a master password, matching spec.md
// §4.12's "instantiates ... (lazily) C11 once a vault is supplied".
func New(opts Options) (*Facade, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EngineBinary == "" {
		opts.EngineBinary = "restic"
	}

	store := config.New(opts.ConfigDir, "", logger)
	doc, warnings, err := store.Load()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("config: load warning", "warning", w)
	}

	bus := status.NewBus(logger)
	registry := metrics.DefaultRegistry()
	bus.Register("metrics", status.SinkFunc(newMetricsSink(registry)))

	statusDir := filepath.Join(opts.ConfigDir, "status")
	persistSink, err := status.NewJSONLSink(statusDir, logger)
	if err != nil {
		return nil, err
	}
	bus.Register("persist", persistSink)
	go func() {
		if err := status.SweepRetention(statusDir, doc.Monitoring.StatusRetentionDays, logger); err != nil {
			logger.Warn("status: retention sweep failed", "error", err)
		}
	}()

	notifier := NewNotifier(doc.Notifications, logger)
	bus.Register("notifier", status.SinkFunc(notifier.HandleStatus))

	adapter := engine.NewAdapter(opts.EngineBinary, logger)
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)

	backupOrch := backup.NewOrchestrator(store, factory, adapter, bus, opts.MaxConcurrent, logger)
	restoreOrch := restore.NewOrchestrator(store, factory, adapter, bus, logger)

	return &Facade{
		store:       store,
		bus:         bus,
		factory:     factory,
		adapter:     adapter,
		backupOrch:  backupOrch,
		restoreOrch: restoreOrch,
		logger:      logger,
		registry:    registry,
		notifier:    notifier,
	}, nil
}

// AttachVault wires a vault into the facade — enabling C3-backed password
// resolution in the repository factory and the C11 security service — once
// the caller has one unlocked (or ready to auto-unlock).
func (f *Facade) AttachVault(v *vault.Vault) error {
	f.vault = v
	f.factory = repository.NewFactory(repository.NewRegistry(), v, v)
	f.backupOrch = backup.NewOrchestrator(f.store, f.factory, f.adapter, f.bus, backup.DefaultMaxConcurrentBackups, f.logger)
	f.restoreOrch = restore.NewOrchestrator(f.store, f.factory, f.adapter, f.bus, f.logger)

	secSvc, err := security.NewService(f.configSecurityDir(), v)
	if err != nil {
		return err
	}
	f.security = secSvc
	return nil
}

func (f *Facade) configSecurityDir() string {
	return filepath.Join(f.store.Dir(), "security")
}

// ExecuteBackup wraps backup.Orchestrator.ExecuteBackup with operation_start/
// operation_end events and an audit hook (spec.md §4.12).
func (f *Facade) ExecuteBackup(ctx context.Context, repositoryName string, targetNames, tags []string, dryRun bool, password string) (*backup.Result, error) {
	operationID := uuid.NewString()
	f.bus.Publish(status.OperationStatus{OperationID: operationID, OperationType: status.OperationBackup, Status: status.StatusPending, Message: "operation_start", Timestamp: time.Now()})

	if f.security != nil {
		if repo, err := f.store.GetRepository(repositoryName); err == nil {
			_ = f.security.CheckEncryptionBeforeBackup(repositoryName, repo.HasBackendCredentials)
		}
	}

	result, err := f.backupOrch.ExecuteBackup(ctx, repositoryName, targetNames, tags, dryRun, password)

	endStatus := status.StatusSuccess
	if err != nil {
		endStatus = status.StatusError
	}
	f.bus.Publish(status.OperationStatus{OperationID: operationID, OperationType: status.OperationBackup, Status: endStatus, Message: "operation_end", Timestamp: time.Now()})
	if f.security != nil {
		_ = f.security.LogOperation(security.Event{Type: security.EventBackup, Level: security.LevelInfo, Description: "backup executed", Repository: repositoryName})
	}
	return result, err
}

// ExecuteRestore wraps restore.Orchestrator.ExecuteRestore with the same
// lifecycle events, plus the integrity-before-restore security gate.
func (f *Facade) ExecuteRestore(ctx context.Context, repositoryName, snapshotID string, opts restore.Options, password string) (*restore.Result, error) {
	operationID := uuid.NewString()
	f.bus.Publish(status.OperationStatus{OperationID: operationID, OperationType: status.OperationRestore, Status: status.StatusPending, Message: "operation_start", Timestamp: time.Now()})

	if f.security != nil {
		repo, err := f.store.GetRepository(repositoryName)
		if err == nil {
			handle, herr := f.factory.Create(repositoryName, repo.Location, repository.CreateOptions{Password: password, RequirePassword: true})
			if herr == nil {
				repoSvc := repository.NewService(f.adapter, handle, f.logger)
				if integrityErr := f.security.CheckIntegrityBeforeRestore(ctx, repositoryName, repoSvc); integrityErr != nil {
					f.bus.Publish(status.OperationStatus{OperationID: operationID, OperationType: status.OperationRestore, Status: status.StatusError, Message: "operation_end", Timestamp: time.Now()})
					return nil, integrityErr
				}
			}
		}
	}

	result, err := f.restoreOrch.ExecuteRestore(ctx, repositoryName, snapshotID, opts, password)

	endStatus := status.StatusSuccess
	if err != nil {
		endStatus = status.StatusError
	}
	f.bus.Publish(status.OperationStatus{OperationID: operationID, OperationType: status.OperationRestore, Status: endStatus, Message: "operation_end", Timestamp: time.Now()})
	if f.security != nil {
		_ = f.security.LogOperation(security.Event{Type: security.EventRestore, Level: security.LevelInfo, Description: "restore executed", Repository: repositoryName})
	}
	return result, err
}

// SystemStatus summarizes component liveness for get_system_status.
type SystemStatus struct {
	VaultUnlocked     bool
	SecurityAttached  bool
	LockedDown        bool
	SinkCount         int
	RepositoryCount   int
	BackupTargetCount int
}

// GetSystemStatus returns component liveness, current-operation sink count,
// and configuration summaries (spec.md §4.12).
func (f *Facade) GetSystemStatus() (*SystemStatus, error) {
	doc, _, err := f.store.ReloadConfiguration()
	if err != nil {
		return nil, err
	}
	return &SystemStatus{
		VaultUnlocked:     f.vault != nil && f.vault.IsUnlocked(),
		SecurityAttached:  f.security != nil,
		LockedDown:        f.IsLockedDown(),
		SinkCount:         f.bus.SinkCount(),
		RepositoryCount:   len(doc.Repositories),
		BackupTargetCount: len(doc.BackupTargets),
	}, nil
}

// Store exposes the configuration store for adapters (CLI) that need
// direct read/write access beyond execute_backup/execute_restore.
func (f *Facade) Store() *config.Store { return f.store }

// Bus exposes the status bus so an adapter can register its own sink
// (e.g. a terminal progress renderer).
func (f *Facade) Bus() *status.Bus { return f.bus }

// Security exposes the security service once a vault has been attached,
// or nil before that.
func (f *Facade) Security() *security.Service { return f.security }

// EmergencyLockdown locks the vault and records a durable lockdown marker.
// It clears no snapshot-list cache: those caches live inside per-handle
// snapshot services that the facade does not retain, and no cache-clear
// callback is passed. Requires a vault to already be
// attached (spec.md §4.11 — lockdown presupposes a security service).
func (f *Facade) EmergencyLockdown(reason string) error {
	if f.security == nil {
		return fmt.Errorf("emergency lockdown requires an attached vault")
	}
	return f.security.EmergencyLockdown(reason, nil)
}

// IsLockedDown reports whether a prior EmergencyLockdown is still in
// effect, or false if no security service is attached.
func (f *Facade) IsLockedDown() bool {
	return f.security != nil && f.security.IsLockedDown()
}

// ClearLockdown removes a prior lockdown marker, requiring an attached vault.
func (f *Facade) ClearLockdown() error {
	if f.security == nil {
		return fmt.Errorf("clearing lockdown requires an attached vault")
	}
	return f.security.ClearLockdown()
}

// Factory exposes the repository factory for adapters that need to
// resolve a handle outside execute_backup/execute_restore (e.g. repos
// init/check, snapshots list).
func (f *Facade) Factory() *repository.Factory { return f.factory }
