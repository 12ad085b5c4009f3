package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
)

// checkWithReadDataTimeout is the timeout for a heavy `check --read-data` pass
// (spec.md §4.6).
const checkWithReadDataTimeout = 5 * time.Minute

// Service (C6) exposes domain-level repository operations as thin wrappers
// around the engine adapter (C4), with JSON parsing and TimeLocker's own
// return types.
type Service struct {
	adapter *engine.Adapter
	handle  *Handle
	logger  *slog.Logger
}

// NewService constructs a Service bound to a single resolved repository
// handle.
func NewService(adapter *engine.Adapter, handle *Handle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{adapter: adapter, handle: handle, logger: logger}
}

func (s *Service) args(base []string) []string {
	return append([]string{"--repo", s.handle.RepositoryArg()}, base...)
}

// Initialize creates the repository if it does not already exist.
// Idempotent: if a local repository already has a `config` object, it
// returns success without invoking the engine (spec.md §4.6).
func (s *Service) Initialize(ctx context.Context) error {
	if s.handle.URI.Scheme == "local" || s.handle.URI.Scheme == "file" {
		state, err := s.LocalInitState()
		if err != nil {
			return &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: err.Error()}
		}
		if state == StateDirWithConfig {
			return nil
		}
		if state == StateAbsentParent {
			return &errs.RepositoryError{Kind: errs.RepoNotFound, Detail: "parent directory does not exist"}
		}
	}

	_, err := s.adapter.Run(ctx, s.args(engine.InitArgs()), s.handle.BackendEnv(), nil)
	return err
}

// LocalInitState runs the local-repository initialization state machine
// (spec.md §4.6). It only applies to local/file schemes.
func (s *Service) LocalInitState() (InitState, error) {
	path := s.handle.URI.Path
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		return StateAbsentParent, nil
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return StateEmptyDir, nil
	}
	if err != nil {
		return "", fmt.Errorf("repository: stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository: %s is not a directory", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("repository: read %s: %w", path, err)
	}
	if len(entries) == 0 {
		return StateEmptyDir, nil
	}
	if _, err := os.Stat(filepath.Join(path, "config")); err == nil {
		return StateDirWithConfig, nil
	}
	return StateDirWithoutConfig, nil
}

// Check runs the engine's integrity check.
func (s *Service) Check(ctx context.Context) (*CheckReport, error) {
	return s.check(ctx, false)
}

// CheckWithReadData runs the heavy --read-data check with a 5-minute
// default timeout (spec.md §4.6).
func (s *Service) CheckWithReadData(ctx context.Context) (*CheckReport, error) {
	ctx, cancel := context.WithTimeout(ctx, checkWithReadDataTimeout)
	defer cancel()
	return s.check(ctx, true)
}

func (s *Service) check(ctx context.Context, readData bool) (*CheckReport, error) {
	report := &CheckReport{Clean: true, ReadData: readData}
	_, err := s.adapter.Run(ctx, s.args(engine.CheckArgs(readData)), s.handle.BackendEnv(), func(e engine.Event) error {
		if e.IsError() {
			report.Clean = false
			report.Errors = append(report.Errors, e.Error)
		}
		return nil
	})
	if err != nil {
		report.Clean = false
		return report, err
	}
	return report, nil
}

// Stats returns repository storage statistics.
func (s *Service) Stats(ctx context.Context) (*StatsReport, error) {
	out, err := s.adapter.Output(ctx, s.args(engine.StatsArgs()), s.handle.BackendEnv())
	if err != nil {
		return nil, err
	}
	var report StatsReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: fmt.Sprintf("parse stats: %v", err)}
	}
	return &report, nil
}

// Unlock clears stale repository locks.
func (s *Service) Unlock(ctx context.Context) error {
	_, err := s.adapter.Run(ctx, s.args(engine.UnlockArgs()), s.handle.BackendEnv(), nil)
	return err
}

// availableMigrations is the fixed set of named engine migrations known at
// this adapter version; the engine itself has no "list" subcommand, so this
// mirrors restic's documented migration names.
var availableMigrations = []string{"upgrade_repo_v2", "s3_layout"}

// ListAvailableMigrations returns the named migrations the engine supports.
func (s *Service) ListAvailableMigrations(ctx context.Context) ([]string, error) {
	return availableMigrations, nil
}

// Migrate applies a named engine migration.
func (s *Service) Migrate(ctx context.Context, name string) error {
	_, err := s.adapter.Run(ctx, s.args([]string{"migrate", "--json", name}), s.handle.BackendEnv(), nil)
	return err
}

type forgetGroup struct {
	Keep   []forgetSnapshot `json:"keep"`
	Remove []forgetSnapshot `json:"remove"`
}

type forgetSnapshot struct {
	ID string `json:"id"`
}

// ApplyRetentionPolicy runs `forget` with the given keep-* counts.
func (s *Service) ApplyRetentionPolicy(ctx context.Context, policy engine.RetentionPolicy, prune, dryRun bool) (*ForgetReport, error) {
	out, err := s.adapter.Output(ctx, s.args(engine.ForgetArgs(policy, prune, dryRun)), s.handle.BackendEnv())
	if err != nil {
		return nil, err
	}
	var groups []forgetGroup
	if err := json.Unmarshal(out, &groups); err != nil {
		return nil, &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: fmt.Sprintf("parse forget: %v", err)}
	}
	report := &ForgetReport{Pruned: prune, DryRun: dryRun}
	for _, g := range groups {
		for _, k := range g.Keep {
			report.KeptSnapshotIDs = append(report.KeptSnapshotIDs, k.ID)
		}
		for _, r := range g.Remove {
			report.RemovedSnapshotIDs = append(report.RemovedSnapshotIDs, r.ID)
		}
	}
	return report, nil
}

// Prune runs a standalone prune pass, reclaiming storage freed by prior
// forget operations.
func (s *Service) Prune(ctx context.Context) error {
	_, err := s.adapter.Run(ctx, s.args(engine.PruneArgs()), s.handle.BackendEnv(), nil)
	return err
}

// ForgetSnapshot forgets a single snapshot by ID, optionally pruning in the
// same pass.
func (s *Service) ForgetSnapshot(ctx context.Context, snapshotID string, prune bool) error {
	_, err := s.adapter.Run(ctx, s.args(engine.ForgetSnapshotArgs(snapshotID, prune)), s.handle.BackendEnv(), nil)
	return err
}

func dirWritable(path string) bool {
	f, err := os.CreateTemp(path, ".timelocker-write-check-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// HealthCheck returns a structured report rather than a single boolean
// (spec.md §4.6).
func (s *Service) HealthCheck(ctx context.Context) HealthReport {
	var report HealthReport
	report.PasswordAvailable = s.handle.Password() != ""

	if s.handle.URI.Scheme == "local" || s.handle.URI.Scheme == "file" {
		path := s.handle.URI.Path
		info, err := os.Stat(path)
		report.DirectoryExists = err == nil
		if err == nil && info.IsDir() {
			report.DirectoryWritable = dirWritable(path)
		}
		if _, err := os.Stat(filepath.Join(path, "config")); err == nil {
			report.RepositoryInitialized = true
		}
	} else {
		report.DirectoryExists = true
		report.DirectoryWritable = true
	}

	if err := s.adapter.EnsureVersion(ctx); err == nil {
		report.EngineAccessible = true
	}
	return report
}
