package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/errs"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(t.TempDir(), DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestUnlock_FreshVaultAcceptsAnyFirstPassword(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("correct horse battery staple"))
	assert.True(t, v.IsUnlocked())
}

func TestUnlock_WrongPasswordAfterInitialFails(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("first-password"))
	v.Lock()

	err := v.Unlock("wrong-password")
	require.Error(t, err)
	assert.False(t, v.IsUnlocked())
}

func TestUnlock_LockoutAfterMaxAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxUnlockAttempts = 3
	cfg.LockoutDuration = time.Hour
	v, err := New(t.TempDir(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	require.NoError(t, v.Unlock("real-password"))
	v.Lock()

	for i := 0; i < 3; i++ {
		_ = v.Unlock("wrong")
	}

	err = v.Unlock("real-password")
	require.Error(t, err)
	var accessErr *errs.CredentialAccessError
	assert.ErrorAs(t, err, &accessErr)
}

func TestLock_ZeroesKeyAndReportsLocked(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("pw"))
	v.Lock()
	assert.False(t, v.IsUnlocked())
}

func TestAutoUnlock_Deterministic(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.AutoUnlock())
	assert.True(t, v.IsUnlocked())
	v.Lock()
	require.NoError(t, v.AutoUnlock())
	assert.True(t, v.IsUnlocked())
}

func TestAutoUnlock_FailsAgainstUnrelatedManualPassword(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("a human chose this"))
	v.Lock()

	err := v.AutoUnlock()
	require.Error(t, err)
}

func TestEnsureUnlocked_EnvironmentFallback(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("env-password"))
	v.Lock()

	v.getenv = func(key string) string {
		if key == "TIMELOCKER_MASTER_PASSWORD" {
			return "env-password"
		}
		return ""
	}

	require.NoError(t, v.EnsureUnlocked(context.Background(), false))
	assert.True(t, v.IsUnlocked())
}

func TestEnsureUnlocked_NoPromptNoEnvFails(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("some-password"))
	v.Lock()
	v.getenv = func(string) string { return "" }

	err := v.EnsureUnlocked(context.Background(), false)
	require.Error(t, err)
}

func TestRepositoryPassword_SetGetRoundTrip(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("pw"))

	require.NoError(t, v.SetRepositoryPassword("repo123", "s3cr3t"))
	got, err := v.GetRepositoryPassword("repo123")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)
}

func TestRepositoryPassword_NotFound(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("pw"))

	_, err := v.GetRepositoryPassword("ghost")
	var credErr *errs.CredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, errs.CredentialNotFound, credErr.Kind)
}

func TestRepositoryPassword_RequiresUnlock(t *testing.T) {
	v := newTestVault(t)
	_, err := v.GetRepositoryPassword("repo123")
	require.Error(t, err)
}

func TestBackendCredentials_SetGetRoundTrip(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("pw"))

	creds := BackendCredentials{"access_key_id": "AKIA...", "secret_access_key": "shh"}
	require.NoError(t, v.SetBackendCredentials("repo123", "s3", creds))

	got, err := v.GetBackendCredentials("repo123", "s3")
	require.NoError(t, err)
	assert.Equal(t, "AKIA...", got["access_key_id"])
}

func TestGlobalBackendCredentials_SetGetRoundTrip(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Unlock("pw"))

	require.NoError(t, v.SetGlobalBackendCredentials("b2", BackendCredentials{"account_id": "x"}))
	got, err := v.GetGlobalBackendCredentials("b2")
	require.NoError(t, err)
	assert.Equal(t, "x", got["account_id"])
}

func TestPersistsAcrossVaultInstances(t *testing.T) {
	dir := t.TempDir()
	v1, err := New(dir, DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, v1.Unlock("shared-pw"))
	require.NoError(t, v1.SetRepositoryPassword("repo1", "pw1"))
	require.NoError(t, v1.Close())

	v2, err := New(dir, DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v2.Close() })
	require.NoError(t, v2.Unlock("shared-pw"))

	got, err := v2.GetRepositoryPassword("repo1")
	require.NoError(t, err)
	assert.Equal(t, "pw1", got)
}
