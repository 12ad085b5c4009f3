package security

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/repository"
)

type fakeLocker struct{ locked bool }

func (f *fakeLocker) Lock() { f.locked = true }

func TestAuditLog_AppendAndSummarize(t *testing.T) {
	dir := t.TempDir()
	log, err := NewAuditLog(dir)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Append(Event{Type: EventBackup, Level: LevelInfo, Description: "ok", Repository: "demo"}))
	require.NoError(t, log.Append(Event{Type: EventUnencryptedRepo, Level: LevelHigh, Description: "unencrypted", Repository: "demo"}))

	summary, err := log.GetSummary(30)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.ByType[EventBackup])
	assert.Equal(t, 1, summary.ByLevel[LevelHigh])
}

func TestCheckEncryptionBeforeBackup_LogsHighEventButDoesNotFail(t *testing.T) {
	svc, err := NewService(t.TempDir(), nil)
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.CheckEncryptionBeforeBackup("demo", false))
	summary, err := svc.GetSecuritySummary(1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ByLevel[LevelHigh])
}

func TestCheckEncryptionBeforeBackup_EncryptedSkipsEvent(t *testing.T) {
	svc, err := NewService(t.TempDir(), nil)
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.CheckEncryptionBeforeBackup("demo", true))
	summary, err := svc.GetSecuritySummary(1)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
}

func TestCheckIntegrityBeforeRestore_FailureRefusesAndLogsCritical(t *testing.T) {
	svc, err := NewService(t.TempDir(), nil)
	require.NoError(t, err)
	defer svc.Close()

	adapter := engine.NewAdapter("/nonexistent-engine-binary", nil)
	registry := repository.NewRegistry()
	factory := repository.NewFactory(registry, nil, nil)
	handle, err := factory.Create("demo", t.TempDir(), repository.CreateOptions{Password: "pw"})
	require.NoError(t, err)
	repoSvc := repository.NewService(adapter, handle, nil)

	err = svc.CheckIntegrityBeforeRestore(context.Background(), "demo", repoSvc)
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "integrity")

	summary, err := svc.GetSecuritySummary(1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ByLevel[LevelCritical])
}

func TestEmergencyLockdown_LocksVaultClearsCachesAndPersistsMarker(t *testing.T) {
	svc, err := NewService(t.TempDir(), &fakeLocker{})
	require.NoError(t, err)
	defer svc.Close()

	locker := svc.vault.(*fakeLocker)
	cleared := false

	require.NoError(t, svc.EmergencyLockdown("suspected compromise", func() { cleared = true }))
	assert.True(t, locker.locked)
	assert.True(t, cleared)
	assert.True(t, svc.IsLockedDown())

	require.NoError(t, svc.ClearLockdown())
	assert.False(t, svc.IsLockedDown())
}
