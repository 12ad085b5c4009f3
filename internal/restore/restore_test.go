package restore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/repository"
	"github.com/auriora/timelocker/internal/snapshot"
)

func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-restic")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func newTestStore(t *testing.T, repoName, repoLocation string) *config.Store {
	t.Helper()
	store := config.New(t.TempDir(), "", nil)
	_, _, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.AddRepository(config.RepositoryDescriptor{Name: repoName, Location: repoLocation, Enabled: true}))
	return store
}

func newTestHandle(t *testing.T, location string) *repository.Handle {
	t.Helper()
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	handle, err := factory.Create("repo1", location, repository.CreateOptions{Password: "pw"})
	require.NoError(t, err)
	return handle
}

func TestRunPreflight_FailsWhenTargetPathEmpty(t *testing.T) {
	bin := writeFakeEngine(t, `exit 0`)
	handle := newTestHandle(t, t.TempDir())
	adapter := engine.NewAdapter(bin, nil)
	repoSvc := repository.NewService(adapter, handle, nil)
	snapSvc := snapshot.NewService(adapter, handle, nil)

	_, err := runPreflight(context.Background(), snapSvc, repoSvc, "abcd1234", Options{})
	require.Error(t, err)
	var restoreErr *errs.RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, errs.RestoreTarget, restoreErr.Kind)
}

func TestRunPreflight_FailsWhenTargetExistsAsFile(t *testing.T) {
	bin := writeFakeEngine(t, `exit 0`)
	handle := newTestHandle(t, t.TempDir())
	adapter := engine.NewAdapter(bin, nil)
	repoSvc := repository.NewService(adapter, handle, nil)
	snapSvc := snapshot.NewService(adapter, handle, nil)

	filePath := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o600))

	_, err := runPreflight(context.Background(), snapSvc, repoSvc, "abcd1234", Options{TargetPath: filePath})
	require.Error(t, err)
	var restoreErr *errs.RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, errs.RestoreTarget, restoreErr.Kind)
}

func TestRunPreflight_MissingTargetWithoutCreateFlagFails(t *testing.T) {
	bin := writeFakeEngine(t, `
if [ "$1" = "check" ]; then exit 0; fi
if [ "$1" = "stats" ]; then echo '{"total_size":0,"total_file_count":0}'; exit 0; fi
exit 0
`)
	handle := newTestHandle(t, t.TempDir())
	adapter := engine.NewAdapter(bin, nil)
	repoSvc := repository.NewService(adapter, handle, nil)
	snapSvc := snapshot.NewService(adapter, handle, nil)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := runPreflight(context.Background(), snapSvc, repoSvc, "abcd1234", Options{TargetPath: missing})
	require.Error(t, err)
}

func TestRunPreflight_CreatesTargetDirectoryWhenRequested(t *testing.T) {
	bin := writeFakeEngine(t, `
if [ "$1" = "check" ]; then exit 0; fi
if [ "$1" = "stats" ]; then echo '{"total_size":0,"total_file_count":0}'; exit 0; fi
exit 0
`)
	handle := newTestHandle(t, t.TempDir())
	adapter := engine.NewAdapter(bin, nil)
	repoSvc := repository.NewService(adapter, handle, nil)
	snapSvc := snapshot.NewService(adapter, handle, nil)

	missing := filepath.Join(t.TempDir(), "fresh")
	result, err := runPreflight(context.Background(), snapSvc, repoSvc, "abcd1234", Options{TargetPath: missing, CreateTargetDirectory: true})
	require.NoError(t, err)
	assert.NotNil(t, result)
	info, statErr := os.Stat(missing)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestRunPreflight_InsufficientSpaceFails(t *testing.T) {
	bin := writeFakeEngine(t, `
if [ "$3" = "check" ]; then exit 0; fi
if [ "$3" = "stats" ]; then echo '{"total_size":999999999999,"total_file_count":10}'; exit 0; fi
exit 0
`)
	handle := newTestHandle(t, t.TempDir())
	adapter := engine.NewAdapter(bin, nil)
	repoSvc := repository.NewService(adapter, handle, nil)
	snapSvc := snapshot.NewService(adapter, handle, nil)

	orig := availableBytesFn
	availableBytesFn = func(string) (uint64, error) { return 1024, nil }
	defer func() { availableBytesFn = orig }()

	_, err := runPreflight(context.Background(), snapSvc, repoSvc, "abcd1234", Options{TargetPath: t.TempDir()})
	require.Error(t, err)
	var restoreErr *errs.RestoreError
	require.ErrorAs(t, err, &restoreErr)
	assert.Equal(t, errs.RestoreSpace, restoreErr.Kind)
	var spaceErr *errs.InsufficientSpaceError
	require.ErrorAs(t, err, &spaceErr)
}

func TestRunPreflight_WarnsOnExistingConflicts(t *testing.T) {
	bin := writeFakeEngine(t, `
if [ "$3" = "check" ]; then exit 0; fi
if [ "$3" = "stats" ]; then echo '{"total_size":1,"total_file_count":1}'; exit 0; fi
exit 0
`)
	handle := newTestHandle(t, t.TempDir())
	adapter := engine.NewAdapter(bin, nil)
	repoSvc := repository.NewService(adapter, handle, nil)
	snapSvc := snapshot.NewService(adapter, handle, nil)

	orig := availableBytesFn
	availableBytesFn = func(string) (uint64, error) { return 1 << 40, nil }
	defer func() { availableBytesFn = orig }()

	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "existing.txt"), []byte("x"), 0o600))

	result, err := runPreflight(context.Background(), snapSvc, repoSvc, "abcd1234", Options{TargetPath: target, ConflictResolution: ConflictPrompt})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}

func TestExecuteRestore_DryRunEmitsNoEngineRestoreCall(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "calls.log")
	bin := writeFakeEngine(t, `
echo "$3" >> `+logPath+`
if [ "$3" = "check" ]; then exit 0; fi
if [ "$3" = "stats" ]; then echo '{"total_size":1,"total_file_count":1}'; exit 0; fi
exit 0
`)
	target := t.TempDir()
	store := newTestStore(t, "repo1", t.TempDir())
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	adapter := engine.NewAdapter(bin, nil)
	orch := NewOrchestrator(store, factory, adapter, nil, nil)

	result, err := orch.ExecuteRestore(context.Background(), "repo1", "abcd1234", Options{TargetPath: target, DryRun: true}, "pw")
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Status)
	assert.True(t, result.DryRun)

	data, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.NotContains(t, string(data), "restore")
}

func TestExecuteRestore_InvalidSnapshotIDRejected(t *testing.T) {
	store := newTestStore(t, "repo1", t.TempDir())
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	adapter := engine.NewAdapter("restic", nil)
	orch := NewOrchestrator(store, factory, adapter, nil, nil)

	_, err := orch.ExecuteRestore(context.Background(), "repo1", "not-hex!!", Options{TargetPath: t.TempDir()}, "pw")
	require.Error(t, err)
	var idErr *errs.InvalidSnapshotIDError
	require.ErrorAs(t, err, &idErr)
}

func TestExecuteRestore_SuccessCountsRestoredFiles(t *testing.T) {
	bin := writeFakeEngine(t, `
if [ "$3" = "check" ]; then exit 0; fi
if [ "$3" = "stats" ]; then echo '{"total_size":1,"total_file_count":2}'; exit 0; fi
if [ "$3" = "restore" ]; then exit 0; fi
exit 0
`)
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(target, "b.txt"), []byte("b"), 0o600))

	store := newTestStore(t, "repo1", t.TempDir())
	factory := repository.NewFactory(repository.NewRegistry(), nil, nil)
	adapter := engine.NewAdapter(bin, nil)
	orch := NewOrchestrator(store, factory, adapter, nil, nil)

	orig := availableBytesFn
	availableBytesFn = func(string) (uint64, error) { return 1 << 40, nil }
	defer func() { availableBytesFn = orig }()

	result, err := orch.ExecuteRestore(context.Background(), "repo1", "abcd1234", Options{TargetPath: target}, "pw")
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, result.Status)
	assert.Equal(t, 2, result.FilesRestored)
}
