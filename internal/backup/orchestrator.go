package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/repository"
	"github.com/auriora/timelocker/internal/status"
	"github.com/auriora/timelocker/pkg/metrics"
)

// DefaultMaxConcurrentBackups is max_concurrent_backups' default (spec.md §4.8).
const DefaultMaxConcurrentBackups = 2

// Orchestrator (C8) drives backups for targets defined in the
// configuration store, through a bounded worker pool and a retry policy.
type Orchestrator struct {
	store        *config.Store
	factory      *repository.Factory
	adapter      *engine.Adapter
	bus          *status.Bus
	retry        RetryPolicy
	logger       *slog.Logger
	retryMetrics *metrics.RetryMetrics

	sem     chan struct{}
	starter *rate.Limiter

	mu        sync.Mutex
	cancelled map[string]bool
}

// NewOrchestrator constructs an Orchestrator. bus may be nil (no status
// events are emitted); maxConcurrent <= 0 uses DefaultMaxConcurrentBackups.
// Operation starts are additionally throttled to one every 100ms so a burst
// of scheduled backups doesn't spike engine process spawns all at once.
func NewOrchestrator(store *config.Store, factory *repository.Factory, adapter *engine.Adapter, bus *status.Bus, maxConcurrent int, logger *slog.Logger) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentBackups
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:        store,
		factory:      factory,
		adapter:      adapter,
		bus:          bus,
		retry:        DefaultRetryPolicy(),
		logger:       logger,
		retryMetrics: metrics.DefaultRegistry().Retry(),
		sem:          make(chan struct{}, maxConcurrent),
		starter:      rate.NewLimiter(rate.Every(100*time.Millisecond), maxConcurrent),
		cancelled:    make(map[string]bool),
	}
}

// SetRetryPolicy overrides the default retry policy.
func (o *Orchestrator) SetRetryPolicy(p RetryPolicy) { o.retry = p }

// Cancel marks operationID as cancelled; a running backup checks this
// between engine events and stops at the next boundary (spec.md §4.8).
func (o *Orchestrator) Cancel(operationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled[operationID] = true
}

func (o *Orchestrator) isCancelled(operationID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled[operationID]
}

func (o *Orchestrator) clearCancel(operationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cancelled, operationID)
}

func (o *Orchestrator) emit(operationID, repositoryID string, opType status.OperationType, st status.Status, message string, metadata map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(status.OperationStatus{
		OperationID:   operationID,
		OperationType: opType,
		Status:        st,
		RepositoryID:  repositoryID,
		Message:       message,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	})
}

// ExecuteBackup validates repositoryName and targetNames against the
// configuration store, then runs the backup — synchronously from the
// caller's perspective, but as a cancellable unit internally (spec.md
// §4.8).
func (o *Orchestrator) ExecuteBackup(ctx context.Context, repositoryName string, targetNames []string, tags []string, dryRun bool, password string) (*Result, error) {
	operationID := uuid.NewString()

	repoDescriptor, err := o.store.GetRepository(repositoryName)
	if err != nil {
		return nil, err
	}
	targets := make([]config.BackupTargetDescriptor, 0, len(targetNames))
	for _, name := range targetNames {
		t, err := o.store.GetTarget(name)
		if err != nil {
			return nil, err
		}
		if t.RepositoryName != repositoryName {
			return nil, &errs.BackupOrchestratorError{
				Reason: fmt.Sprintf("target %q is bound to repository %q, not %q", name, t.RepositoryName, repositoryName),
				Cause:  &errs.InvalidBackupConfigurationError{Reason: "target/repository mismatch"},
			}
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, &errs.BackupOrchestratorError{
			Reason: "no backup targets specified",
			Cause:  &errs.InvalidBackupConfigurationError{Reason: "empty target list"},
		}
	}

	repositoryID := repository.ID(repoDescriptor.Location)
	o.emit(operationID, repositoryID, status.OperationBackup, status.StatusPending, "backup queued", nil)

	if err := o.starter.Wait(ctx); err != nil {
		return nil, err
	}

	select {
	case o.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-o.sem }()
	defer o.clearCancel(operationID)

	o.emit(operationID, repositoryID, status.OperationBackup, status.StatusRunning, "backup started", nil)

	sel := BuildFileSelection(targets)

	if dryRun {
		return o.executeDryRun(operationID, repositoryID, sel)
	}

	handle, err := o.factory.Create(repositoryName, repoDescriptor.Location, repository.CreateOptions{Password: password, RequirePassword: true})
	if err != nil {
		o.emit(operationID, repositoryID, status.OperationBackup, status.StatusError, err.Error(), nil)
		return nil, err
	}

	result, err := o.executeWithRetry(ctx, operationID, repositoryID, handle, sel, tags)
	if err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) executeDryRun(operationID, repositoryID string, sel FileSelection) (*Result, error) {
	fileCount, totalBytes := EstimateWalk(sel)
	result := &Result{
		OperationID:         operationID,
		Status:              ResultCompleted,
		SnapshotID:           fmt.Sprintf("dry-run-%d", dryRunTimestamp()),
		TotalFilesProcessed: fileCount,
		DataAdded:           totalBytes,
		DryRun:              true,
	}
	o.emit(operationID, repositoryID, status.OperationBackup, status.StatusSuccess, "dry run complete", map[string]any{
		"file_count":  fileCount,
		"total_bytes": totalBytes,
	})
	return result, nil
}

// dryRunTimestamp is a seam so tests can make the synthetic snapshot ID
// deterministic without calling time.Now() from the workflow harness.
var dryRunTimestamp = func() int64 { return time.Now().Unix() }

func (o *Orchestrator) executeWithRetry(ctx context.Context, operationID, repositoryID string, handle *repository.Handle, sel FileSelection, tags []string) (*Result, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= o.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := o.retry.delayForAttempt(attempt - 1)
			o.retryMetrics.RecordBackoff("backup", delay.Seconds())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		attempts = attempt + 1

		if missing := missingPaths(sel.Paths); len(missing) > 0 {
			lastErr = &errs.BackupOrchestratorError{
				Reason: fmt.Sprintf("target paths missing: %v", missing),
				Cause:  &errs.InvalidBackupConfigurationError{Reason: "missing target path"},
			}
			o.retryMetrics.RecordAttempt("backup", "failure", errorTypeLabel(lastErr))
			continue
		}

		args := append([]string{"--repo", handle.RepositoryArg()}, engine.BackupArgs(sel.Paths, tags, sel.ExcludePatterns, sel.ExcludeIfPresent)...)
		summary, err := o.adapter.Run(ctx, args, handle.BackendEnv(), func(e engine.Event) error {
			if o.isCancelled(operationID) {
				return fmt.Errorf("backup cancelled")
			}
			return nil
		})

		if err != nil {
			if isCancellationError(err) {
				o.retryMetrics.RecordAttempt("backup", "cancelled", "cancelled")
				o.retryMetrics.RecordFinalAttempt("backup", "cancelled", attempt+1)
				o.emit(operationID, repositoryID, status.OperationBackup, status.StatusCancelled, "backup cancelled", nil)
				return &Result{OperationID: operationID, Status: ResultCancelled}, err
			}
			lastErr = err
			o.retryMetrics.RecordAttempt("backup", "failure", errorTypeLabel(err))
			if isFatal(err) {
				break
			}
			o.logger.Warn("backup attempt failed, retrying", "attempt", attempt, "error", err)
			continue
		}

		if verr := o.verifyAfterBackup(ctx, handle); verr != nil {
			lastErr = verr
			o.retryMetrics.RecordAttempt("backup", "failure", "verification")
			o.logger.Warn("post-backup verification failed, retrying", "attempt", attempt, "error", verr)
			continue
		}

		result := &Result{
			OperationID: operationID,
			Status:      ResultCompleted,
		}
		if summary != nil {
			result.SnapshotID = summary.SnapshotID
			result.FilesNew = summary.FilesNew
			result.FilesChanged = summary.FilesChanged
			result.FilesUnmodified = summary.FilesUnmodified
			result.DataAdded = summary.DataAdded
			result.TotalFilesProcessed = summary.TotalFilesProcessed
			result.TotalDuration = summary.TotalDuration
		}
		o.retryMetrics.RecordAttempt("backup", "success", "none")
		o.retryMetrics.RecordFinalAttempt("backup", "success", attempt+1)
		o.emit(operationID, repositoryID, status.OperationBackup, status.StatusSuccess, "backup completed", map[string]any{"snapshot_id": result.SnapshotID})
		return result, nil
	}

	o.retryMetrics.RecordFinalAttempt("backup", "failure", attempts)
	o.emit(operationID, repositoryID, status.OperationBackup, status.StatusError, lastErr.Error(), nil)
	return &Result{OperationID: operationID, Status: ResultFailed, Errors: []string{lastErr.Error()}}, lastErr
}

// verifyAfterBackup runs a repository check immediately after a successful
// backup when the backup section's verify_after_backup flag is set (spec.md
// §4.8). A dirty repository or a check error is returned so the caller
// treats it as a retryable failure of the whole attempt, not a separate
// outcome.
func (o *Orchestrator) verifyAfterBackup(ctx context.Context, handle *repository.Handle) error {
	var section config.BackupSection
	if err := o.store.GetSection("backup", &section); err != nil {
		return nil
	}
	if !section.VerifyAfterBackup {
		return nil
	}

	svc := repository.NewService(o.adapter, handle, o.logger)
	report, err := svc.Check(ctx)
	if err != nil {
		return fmt.Errorf("post-backup verification: %w", err)
	}
	if !report.Clean {
		return fmt.Errorf("post-backup verification: repository check reported errors: %v", report.Errors)
	}
	return nil
}

func isCancellationError(err error) bool {
	var orchErr *errs.BackupOrchestratorError
	return errsAs(err, &orchErr) && orchErr.Reason == "cancelled"
}

// isFatal reports whether err should abort retries immediately rather
// than be retried (spec.md §4.8's failure semantics).
func isFatal(err error) bool {
	var repoErr *errs.RepositoryError
	if errsAs(err, &repoErr) {
		return !repoErr.Retryable()
	}
	var invalidCfg *errs.InvalidBackupConfigurationError
	if errsAs(err, &invalidCfg) {
		return true
	}
	var unsupported *errs.UnsupportedSchemeError
	return errsAs(err, &unsupported)
}

// errorTypeLabel buckets err into the error_type label RetryMetrics
// expects, using the same errors.As classification isFatal relies on.
func errorTypeLabel(err error) string {
	var repoErr *errs.RepositoryError
	if errsAs(err, &repoErr) {
		return string(repoErr.Kind)
	}
	var invalidCfg *errs.InvalidBackupConfigurationError
	if errsAs(err, &invalidCfg) {
		return "invalid_configuration"
	}
	var unsupported *errs.UnsupportedSchemeError
	if errsAs(err, &unsupported) {
		return "unsupported_scheme"
	}
	return "other"
}

func missingPaths(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if !pathExists(p) {
			missing = append(missing, p)
		}
	}
	return missing
}
