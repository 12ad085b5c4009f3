package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/vault"
)

func TestParseURI_BarePathIsLocal(t *testing.T) {
	u, err := ParseURI("/var/backups/repo")
	require.NoError(t, err)
	assert.Equal(t, "local", u.Scheme)
	assert.Equal(t, "/var/backups/repo", u.Path)
}

func TestParseURI_RemoteScheme(t *testing.T) {
	u, err := ParseURI("s3://bucket.example.com/backups")
	require.NoError(t, err)
	assert.Equal(t, "s3", u.Scheme)
	assert.Equal(t, "bucket.example.com", u.Host)
}

func TestParseURI_Validate_LocalRequiresPath(t *testing.T) {
	u := ParsedURI{Scheme: "local", Path: ""}
	require.Error(t, u.Validate())
}

func TestParseURI_Validate_RemoteRequiresHost(t *testing.T) {
	u := ParsedURI{Scheme: "s3", Host: ""}
	require.Error(t, u.Validate())
}

func TestID_StableAndIndependentOfName(t *testing.T) {
	a := ID("s3://bucket/repo")
	b := ID("s3://bucket/repo")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestFactory_Create_UnsupportedScheme(t *testing.T) {
	f := NewFactory(NewRegistry(), nil, nil)
	_, err := f.Create("repo1", "ftp://example.com/backups", CreateOptions{})
	require.Error(t, err)
	var factErr *errs.RepositoryFactoryError
	require.ErrorAs(t, err, &factErr)
	var unsupported *errs.UnsupportedSchemeError
	assert.ErrorAs(t, err, &unsupported)
}

func TestFactory_Create_ExplicitPasswordWins(t *testing.T) {
	f := NewFactory(NewRegistry(), nil, nil)
	h, err := f.Create("repo1", "/tmp/repo", CreateOptions{Password: "explicit-pw"})
	require.NoError(t, err)
	assert.Equal(t, "explicit-pw", h.Password())
}

func TestFactory_Create_FallsBackToEnvironment(t *testing.T) {
	f := NewFactory(NewRegistry(), nil, nil)
	f.getenv = func(k string) string {
		if k == "TIMELOCKER_PASSWORD" {
			return "from-env"
		}
		return ""
	}
	h, err := f.Create("repo1", "/tmp/repo", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", h.Password())
}

func TestFactory_Create_RequirePasswordFails(t *testing.T) {
	f := NewFactory(NewRegistry(), nil, nil)
	f.getenv = func(string) string { return "" }
	_, err := f.Create("repo1", "/tmp/repo", CreateOptions{RequirePassword: true})
	require.Error(t, err)
}

func TestFactory_Create_ResolvesPasswordFromVault(t *testing.T) {
	v, err := vault.New(t.TempDir(), vault.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, v.Unlock("master-pw"))
	repoID := ID("/tmp/repo")
	require.NoError(t, v.SetRepositoryPassword(repoID, "vault-pw"))

	f := NewFactory(NewRegistry(), v, v)
	h, err := f.Create("repo1", "/tmp/repo", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "vault-pw", h.Password())
}

func TestHandle_BackendEnv_RecomputesOnCredentialRotation(t *testing.T) {
	f := NewFactory(NewRegistry(), nil, nil)
	h, err := f.Create("repo1", "s3://bucket.example.com/repo", CreateOptions{
		Password:           "pw",
		BackendCredentials: map[string]string{"access_key_id": "AKIA1"},
	})
	require.NoError(t, err)

	env := h.BackendEnv()
	assert.Equal(t, "AKIA1", env["AWS_ACCESS_KEY_ID"])

	h.SetCredentials(map[string]string{"access_key_id": "AKIA2"})
	env = h.BackendEnv()
	assert.Equal(t, "AKIA2", env["AWS_ACCESS_KEY_ID"])
}

func TestService_LocalInitState(t *testing.T) {
	f := NewFactory(NewRegistry(), nil, nil)

	t.Run("absent parent", func(t *testing.T) {
		h, err := f.Create("r", filepath.Join(t.TempDir(), "missing", "repo"), CreateOptions{Password: "pw"})
		require.NoError(t, err)
		svc := NewService(engine.NewAdapter("restic", nil), h, nil)
		state, err := svc.LocalInitState()
		require.NoError(t, err)
		assert.Equal(t, StateAbsentParent, state)
	})

	t.Run("empty dir", func(t *testing.T) {
		dir := t.TempDir()
		h, err := f.Create("r", dir, CreateOptions{Password: "pw"})
		require.NoError(t, err)
		svc := NewService(engine.NewAdapter("restic", nil), h, nil)
		state, err := svc.LocalInitState()
		require.NoError(t, err)
		assert.Equal(t, StateEmptyDir, state)
	})

	t.Run("dir with config", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("{}"), 0o600))
		h, err := f.Create("r", dir, CreateOptions{Password: "pw"})
		require.NoError(t, err)
		svc := NewService(engine.NewAdapter("restic", nil), h, nil)
		state, err := svc.LocalInitState()
		require.NoError(t, err)
		assert.Equal(t, StateDirWithConfig, state)
	})

	t.Run("dir without config", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
		h, err := f.Create("r", dir, CreateOptions{Password: "pw"})
		require.NoError(t, err)
		svc := NewService(engine.NewAdapter("restic", nil), h, nil)
		state, err := svc.LocalInitState()
		require.NoError(t, err)
		assert.Equal(t, StateDirWithoutConfig, state)
	})
}

func TestService_Initialize_IdempotentWhenAlreadyInitialized(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("{}"), 0o600))

	f := NewFactory(NewRegistry(), nil, nil)
	h, err := f.Create("r", dir, CreateOptions{Password: "pw"})
	require.NoError(t, err)

	svc := NewService(engine.NewAdapter("/nonexistent-binary-should-never-run", nil), h, nil)
	require.NoError(t, svc.Initialize(context.Background()))
}

func TestService_HealthCheck_ReportsDirectoryState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("{}"), 0o600))

	f := NewFactory(NewRegistry(), nil, nil)
	h, err := f.Create("r", dir, CreateOptions{Password: "pw"})
	require.NoError(t, err)

	svc := NewService(engine.NewAdapter("/nonexistent-binary-should-never-run", nil), h, nil)
	report := svc.HealthCheck(context.Background())
	assert.True(t, report.DirectoryExists)
	assert.True(t, report.DirectoryWritable)
	assert.True(t, report.RepositoryInitialized)
	assert.True(t, report.PasswordAvailable)
	assert.False(t, report.EngineAccessible)
}
