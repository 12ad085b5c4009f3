package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/repository"
	"github.com/auriora/timelocker/internal/snapshot"
	"github.com/auriora/timelocker/internal/status"
)

// ResultStatus mirrors backup.ResultStatus for restore outcomes.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
	ResultCancelled ResultStatus = "cancelled"
)

// Result is the outcome of a single execute_restore call.
type Result struct {
	OperationID   string
	Status        ResultStatus
	FilesRestored int
	Warnings      []string
	Errors        []string
	DryRun        bool
}

// Orchestrator (C9) drives restores for repositories known to the
// configuration store.
type Orchestrator struct {
	store   *config.Store
	factory *repository.Factory
	adapter *engine.Adapter
	bus     *status.Bus
	logger  *slog.Logger
}

// NewOrchestrator constructs an Orchestrator. bus may be nil.
func NewOrchestrator(store *config.Store, factory *repository.Factory, adapter *engine.Adapter, bus *status.Bus, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, factory: factory, adapter: adapter, bus: bus, logger: logger}
}

func (o *Orchestrator) emit(operationID, repositoryID string, st status.Status, message string, metadata map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(status.OperationStatus{
		OperationID:   operationID,
		OperationType: status.OperationRestore,
		Status:        st,
		RepositoryID:  repositoryID,
		Message:       message,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	})
}

// ExecuteRestore runs the full pre-flight chain, then (unless dry_run)
// drives the engine's restore and post-verifies the result (spec.md §4.9).
func (o *Orchestrator) ExecuteRestore(ctx context.Context, repositoryName, snapshotID string, opts Options, password string) (*Result, error) {
	operationID := uuid.NewString()

	if !snapshot.ValidID(snapshotID) {
		return nil, &errs.InvalidSnapshotIDError{Value: snapshotID}
	}

	repoDescriptor, err := o.store.GetRepository(repositoryName)
	if err != nil {
		return nil, err
	}
	repositoryID := repository.ID(repoDescriptor.Location)
	o.emit(operationID, repositoryID, status.StatusPending, "restore queued", nil)

	handle, err := o.factory.Create(repositoryName, repoDescriptor.Location, repository.CreateOptions{Password: password, RequirePassword: true})
	if err != nil {
		o.emit(operationID, repositoryID, status.StatusError, err.Error(), nil)
		return nil, err
	}

	repoSvc := repository.NewService(o.adapter, handle, o.logger)
	snapSvc := snapshot.NewService(o.adapter, handle, o.logger)

	o.emit(operationID, repositoryID, status.StatusRunning, "restore started", nil)

	if opts.DryRun {
		pre, err := runPreflight(ctx, snapSvc, repoSvc, snapshotID, opts)
		if err != nil {
			o.emit(operationID, repositoryID, status.StatusError, err.Error(), nil)
			return &Result{OperationID: operationID, Status: ResultFailed, Errors: []string{err.Error()}, DryRun: true}, err
		}
		o.emit(operationID, repositoryID, status.StatusSuccess, "dry run complete", map[string]any{"snapshot_bytes": pre.SnapshotBytes})
		return &Result{OperationID: operationID, Status: ResultCompleted, Warnings: pre.Warnings, DryRun: true}, nil
	}

	pre, err := runPreflight(ctx, snapSvc, repoSvc, snapshotID, opts)
	if err != nil {
		o.emit(operationID, repositoryID, status.StatusError, err.Error(), nil)
		return &Result{OperationID: operationID, Status: ResultFailed, Errors: []string{err.Error()}}, err
	}

	args := append([]string{"--repo", handle.RepositoryArg()}, engine.RestoreArgs(snapshotID, opts.TargetPath, opts.IncludePaths, opts.ExcludePaths)...)
	_, runErr := o.adapter.Run(ctx, args, handle.BackendEnv(), func(e engine.Event) error {
		if opts.ProgressCallback != nil && e.PercentDone > 0 {
			opts.ProgressCallback(e.PercentDone)
		}
		return nil
	})
	if runErr != nil {
		restoreErr := classifyRestoreFailure(runErr)
		o.emit(operationID, repositoryID, status.StatusError, restoreErr.Error(), nil)
		return &Result{OperationID: operationID, Status: ResultFailed, Errors: []string{restoreErr.Error()}, Warnings: pre.Warnings}, restoreErr
	}

	restored, walkErr := countRegularFiles(opts.TargetPath)
	warnings := pre.Warnings
	if walkErr != nil {
		warnings = append(warnings, fmt.Sprintf("post-verification walk failed: %v", walkErr))
	} else {
		if restored == 0 {
			warnings = append(warnings, "no files found under restore target after restore")
		}
		if pre.SnapshotFiles > 0 && uint64(restored) != pre.SnapshotFiles {
			warnings = append(warnings, fmt.Sprintf("restored file count %d does not match snapshot's reported %d", restored, pre.SnapshotFiles))
		}
	}

	result := &Result{
		OperationID:   operationID,
		Status:        ResultCompleted,
		FilesRestored: restored,
		Warnings:      warnings,
	}
	o.emit(operationID, repositoryID, status.StatusSuccess, "restore completed", map[string]any{"files_restored": restored})
	return result, nil
}

func classifyRestoreFailure(err error) *errs.RestoreError {
	var repoErr *errs.RepositoryError
	if errors.As(err, &repoErr) {
		switch repoErr.Kind {
		case errs.RepoLocked:
			return &errs.RestoreError{Kind: errs.RestoreInterrupted, Detail: "repository locked", Cause: err}
		default:
			return &errs.RestoreError{Kind: errs.RestoreEngine, Detail: "engine failure", Cause: err}
		}
	}
	return &errs.RestoreError{Kind: errs.RestoreEngine, Detail: "engine failure", Cause: err}
}
