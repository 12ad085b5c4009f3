package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/repository"
	"github.com/auriora/timelocker/internal/status"
)

func TestRetryPolicy_DelayForAttempt_Exponential(t *testing.T) {
	p := RetryPolicy{RetryDelay: time.Second, BackoffMultiplier: 2.0}
	assert.Equal(t, time.Second, p.delayForAttempt(0))
	assert.Equal(t, 2*time.Second, p.delayForAttempt(1))
	assert.Equal(t, 4*time.Second, p.delayForAttempt(2))
}

func TestBuildFileSelection_DeduplicatesPathsMergesFilters(t *testing.T) {
	targets := []config.BackupTargetDescriptor{
		{Paths: []string{"/data/a"}, ExcludePatterns: []string{"*.tmp"}},
		{Paths: []string{"/data/a", "/data/b"}, ExcludeFiles: []string{".nobackup"}},
	}
	sel := BuildFileSelection(targets)
	assert.Equal(t, []string{"/data/a", "/data/b"}, sel.Paths)
	assert.Equal(t, []string{"*.tmp"}, sel.ExcludePatterns)
	assert.Equal(t, []string{".nobackup"}, sel.ExcludeIfPresent)
}

func TestEstimateWalk_CountsFilesAndBytes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world!"), 0o600))

	count, total := EstimateWalk(FileSelection{Paths: []string{dir}})
	assert.Equal(t, uint64(2), count)
	assert.Equal(t, uint64(11), total)
}

func newTestStore(t *testing.T, repoName, repoLocation, targetName string) *config.Store {
	t.Helper()
	store := config.New(t.TempDir(), "", nil)
	doc, _, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.AddRepository(config.RepositoryDescriptor{Name: repoName, Location: repoLocation, Enabled: true}))
	require.NoError(t, store.AddTarget(config.BackupTargetDescriptor{Name: targetName, RepositoryName: repoName, Paths: []string{t.TempDir()}, Enabled: true}))
	_ = doc
	return store
}

func TestOrchestrator_ExecuteBackup_DryRun(t *testing.T) {
	store := newTestStore(t, "repo1", "/tmp/repo1", "target1")
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	adapter := engine.NewAdapter("/nonexistent-binary-should-never-run", nil)
	bus := status.NewBus(nil)

	var events []status.OperationStatus
	bus.Register("collector", status.SinkFunc(func(e status.OperationStatus) { events = append(events, e) }))

	orch := NewOrchestrator(store, factory, adapter, bus, 1, nil)
	result, err := orch.ExecuteBackup(context.Background(), "repo1", []string{"target1"}, nil, true, "pw")
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Status)
	assert.True(t, result.DryRun)
	assert.Contains(t, result.SnapshotID, "dry-run-")
	assert.NotEmpty(t, events)
}

func TestOrchestrator_ExecuteBackup_UnknownRepository(t *testing.T) {
	store := newTestStore(t, "repo1", "/tmp/repo1", "target1")
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	adapter := engine.NewAdapter("restic", nil)
	orch := NewOrchestrator(store, factory, adapter, nil, 1, nil)

	_, err := orch.ExecuteBackup(context.Background(), "does-not-exist", []string{"target1"}, nil, true, "pw")
	require.Error(t, err)
}

func TestOrchestrator_ExecuteBackup_TargetRepositoryMismatch(t *testing.T) {
	store := newTestStore(t, "repo1", "/tmp/repo1", "target1")
	require.NoError(t, store.AddRepository(config.RepositoryDescriptor{Name: "repo2", Location: "/tmp/repo2", Enabled: true}))

	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	adapter := engine.NewAdapter("restic", nil)
	orch := NewOrchestrator(store, factory, adapter, nil, 1, nil)

	_, err := orch.ExecuteBackup(context.Background(), "repo2", []string{"target1"}, nil, true, "pw")
	require.Error(t, err)
}

func TestOrchestrator_Cancel_MarksOperationCancelled(t *testing.T) {
	orch := NewOrchestrator(newTestStore(t, "repo1", "/tmp/repo1", "target1"), repository.NewFactory(repository.NewRegistry(), nil, nil), engine.NewAdapter("restic", nil), nil, 1, nil)
	orch.Cancel("op1")
	assert.True(t, orch.isCancelled("op1"))
	orch.clearCancel("op1")
	assert.False(t, orch.isCancelled("op1"))
}
