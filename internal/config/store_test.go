package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auriora/timelocker/internal/errs"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return New(dir, "", nil), dir
}

func TestLoad_CreatesDefaultDocumentWhenAbsent(t *testing.T) {
	s, dir := newTestStore(t)

	doc, warnings, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "info", doc.General.LogLevel)

	assert.FileExists(t, filepath.Join(dir, "config.json"))
}

func TestSave_RoundTrips(t *testing.T) {
	s, _ := newTestStore(t)

	doc, _, err := s.Load()
	require.NoError(t, err)

	doc.Repositories["home"] = RepositoryDescriptor{
		Name:     "home",
		Location: "file:///mnt/backup",
		Enabled:  true,
	}
	require.NoError(t, s.Save(doc))

	reloaded, _, err := s.ReloadConfiguration()
	require.NoError(t, err)
	require.Contains(t, reloaded.Repositories, "home")
	assert.Equal(t, "file:///mnt/backup", reloaded.Repositories["home"].Location)
}

func TestSave_MirrorsLegacyDefaultRepositoryAlias(t *testing.T) {
	s, _ := newTestStore(t)
	doc, _, err := s.Load()
	require.NoError(t, err)

	doc.Repositories["home"] = RepositoryDescriptor{Name: "home", Location: "local", Enabled: true}
	doc.General.DefaultRepository = "home"
	require.NoError(t, s.Save(doc))

	reloaded, _, err := s.ReloadConfiguration()
	require.NoError(t, err)
	require.NotNil(t, reloaded.Settings)
	assert.Equal(t, "home", reloaded.Settings.DefaultRepository)
}

func TestSave_RejectsInvalidDocument(t *testing.T) {
	s, _ := newTestStore(t)
	doc, _, err := s.Load()
	require.NoError(t, err)

	doc.General.LogLevel = "verbose"
	err = s.Save(doc)
	require.Error(t, err)
	var invalid *errs.InvalidConfigurationError
	assert.ErrorAs(t, err, &invalid)
}

func TestAddRemoveGetRepository(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.AddRepository(RepositoryDescriptor{Name: "home", Location: "local", Enabled: true}))

	got, err := s.GetRepository("home")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Location)

	require.NoError(t, s.RemoveRepository("home"))
	_, err = s.GetRepository("home")
	var notFound *errs.RepositoryNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRemoveRepository_UnknownNameErrors(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.RemoveRepository("ghost")
	var notFound *errs.RepositoryNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestAddTarget_RequiresKnownRepository(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.AddTarget(BackupTargetDescriptor{
		Name:           "docs",
		RepositoryName: "missing",
		Paths:          []string{"/tmp"},
	})
	require.Error(t, err)
}

func TestAddTarget_Succeeds(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddRepository(RepositoryDescriptor{Name: "home", Location: "local", Enabled: true}))
	require.NoError(t, s.AddTarget(BackupTargetDescriptor{
		Name:           "docs",
		RepositoryName: "home",
		Paths:          []string{"/tmp"},
	}))

	got, err := s.GetTarget("docs")
	require.NoError(t, err)
	assert.Equal(t, "home", got.RepositoryName)

	require.NoError(t, s.RemoveTarget("docs"))
	var notFound *errs.TargetNotFoundError
	_, err = s.GetTarget("docs")
	assert.ErrorAs(t, err, &notFound)
}

func TestSetDefaultRepository_UnknownNameErrors(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.SetDefaultRepository("ghost")
	var notFound *errs.RepositoryNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSetDefaultRepository_Succeeds(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddRepository(RepositoryDescriptor{Name: "home", Location: "local", Enabled: true}))
	require.NoError(t, s.SetDefaultRepository("home"))

	doc, _, err := s.ReloadConfiguration()
	require.NoError(t, err)
	assert.Equal(t, "home", doc.General.DefaultRepository)
}

func TestGetSection_UpdateSection(t *testing.T) {
	s, _ := newTestStore(t)

	var backup BackupSection
	require.NoError(t, s.GetSection("backup", &backup))
	assert.Equal(t, 3, backup.MaxRetries)

	require.NoError(t, s.UpdateSection("backup", map[string]any{
		"max_retries":            5,
		"retry_delay_seconds":    1.0,
		"backoff_multiplier":     2.0,
		"max_concurrent_backups": 2,
		"compression_level":      "auto",
	}))

	var updated BackupSection
	require.NoError(t, s.GetSection("backup", &updated))
	assert.Equal(t, 5, updated.MaxRetries)
}

func TestExportImport_JSON(t *testing.T) {
	s, dir := newTestStore(t)
	require.NoError(t, s.AddRepository(RepositoryDescriptor{Name: "home", Location: "local", Enabled: true}))

	exportPath := filepath.Join(dir, "exported.json")
	require.NoError(t, s.Export(exportPath))
	assert.FileExists(t, exportPath)

	other := New(t.TempDir(), "", nil)
	require.NoError(t, other.Import(exportPath))

	got, err := other.GetRepository("home")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Location)
}

func TestResetToDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddRepository(RepositoryDescriptor{Name: "home", Location: "local", Enabled: true}))
	require.NoError(t, s.ResetToDefaults())

	doc, _, err := s.ReloadConfiguration()
	require.NoError(t, err)
	assert.Empty(t, doc.Repositories)
}

func TestLoad_DeepMergesProjectOverlay(t *testing.T) {
	dir := t.TempDir()
	overlayPath := filepath.Join(dir, "overlay.json")
	overlay := []byte(`{
		"general": {"log_level": "debug"},
		"repositories": {"project": {"name": "project", "location": "local", "enabled": true}}
	}`)
	require.NoError(t, os.WriteFile(overlayPath, overlay, 0o600))

	s := New(dir, overlayPath, nil)
	doc, _, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", doc.General.LogLevel)
	assert.Contains(t, doc.Repositories, "project")
}

func TestLoad_InvalidatesCacheOnExternalModification(t *testing.T) {
	s, dir := newTestStore(t)
	first, _, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "info", first.General.LogLevel)

	// Simulate a second process rewriting the file with a later mtime.
	time.Sleep(10 * time.Millisecond)
	modified := *first
	modified.General.LogLevel = "debug"
	raw, err := json.MarshalIndent(&modified, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o600))

	reloaded, err := s.current()
	require.NoError(t, err)
	assert.Equal(t, "debug", reloaded.General.LogLevel)
}
