package facade

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/vault"
)

func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-restic")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestNew_ConstructsWithEmptyConfig(t *testing.T) {
	f, err := New(Options{ConfigDir: t.TempDir()})
	require.NoError(t, err)
	st, err := f.GetSystemStatus()
	require.NoError(t, err)
	assert.False(t, st.VaultUnlocked)
	assert.False(t, st.SecurityAttached)
	assert.Equal(t, 0, st.RepositoryCount)
}

func TestAttachVault_EnablesSecurityAndUnlockedStatus(t *testing.T) {
	f, err := New(Options{ConfigDir: t.TempDir()})
	require.NoError(t, err)

	v, err := vault.New(t.TempDir(), vault.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, v.Unlock("master-password"))

	require.NoError(t, f.AttachVault(v))
	st, err := f.GetSystemStatus()
	require.NoError(t, err)
	assert.True(t, st.VaultUnlocked)
	assert.True(t, st.SecurityAttached)
}

func TestEmergencyLockdown_RequiresVaultThenSurvivesInStatus(t *testing.T) {
	f, err := New(Options{ConfigDir: t.TempDir()})
	require.NoError(t, err)

	err = f.EmergencyLockdown("test trigger")
	assert.Error(t, err)

	v, err := vault.New(t.TempDir(), vault.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, f.AttachVault(v))

	require.NoError(t, f.EmergencyLockdown("suspected compromise"))
	st, err := f.GetSystemStatus()
	require.NoError(t, err)
	assert.True(t, st.LockedDown)

	require.NoError(t, f.ClearLockdown())
	assert.False(t, f.IsLockedDown())
}

func TestExecuteBackup_DryRunEmitsEvents(t *testing.T) {
	bin := writeFakeEngine(t, `exit 0`)
	configDir := t.TempDir()
	f, err := New(Options{ConfigDir: configDir, EngineBinary: bin})
	require.NoError(t, err)

	store := f.Store()
	require.NoError(t, store.AddRepository(config.RepositoryDescriptor{Name: "demo", Location: "file://" + t.TempDir(), Enabled: true}))
	require.NoError(t, store.AddTarget(config.BackupTargetDescriptor{Name: "docs", RepositoryName: "demo", Paths: []string{t.TempDir()}, Enabled: true}))

	result, err := f.ExecuteBackup(context.Background(), "demo", []string{"docs"}, nil, true, "pw")
	require.NoError(t, err)
	assert.True(t, result.DryRun)
}
