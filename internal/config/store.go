package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/auriora/timelocker/internal/errs"
)

const maxConfigBackups = 10

// Store is the typed configuration store (C2): a cached, validated,
// mtime-checked view of a single JSON document on disk, deep-merged with an
// optional project overlay.
//
// The cache is guarded by mu; every public method takes the lock, so calls
// from the same goroutine must never nest (there is no Go equivalent of a
// reentrant mutex — spec.md's "reentrant lock" requirement is satisfied by
// structuring every public method as a single, non-nesting critical
// section, matching how the teacher's ReloadCoordinator uses atomic.Value
// plus a plain sync.RWMutex rather than a literal reentrant lock).
type Store struct {
	mu sync.RWMutex

	userPath    string
	overlayPath string // empty when no project overlay is present
	backupDir   string
	fileLock    *flock.Flock

	cached    *Document
	cachedAt  time.Time
	userMtime time.Time

	validator *Validator
	logger    *slog.Logger
}

// New constructs a Store rooted at configDir/config.json, with an optional
// project overlay path (empty string disables the overlay).
func New(configDir, overlayPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	userPath := filepath.Join(configDir, "config.json")
	return &Store{
		userPath:    userPath,
		overlayPath: overlayPath,
		backupDir:   filepath.Join(configDir, "config_backups"),
		fileLock:    flock.New(userPath + ".lock"),
		validator:   NewValidator(),
		logger:      logger,
	}
}

// Dir returns the directory the store's configuration document (and its
// sibling backup/security/status directories) is rooted at.
func (s *Store) Dir() string {
	return filepath.Dir(s.userPath)
}

// withFileLock serializes writers across processes (spec.md §5's "OS file
// lock" requirement) using a sibling lock file, since flock on some
// platforms can't be taken directly on a file this process is about to
// rename over.
func (s *Store) withFileLock(fn func() error) error {
	if err := s.fileLock.Lock(); err != nil {
		return &errs.ConfigurationError{Op: "lock", Cause: err}
	}
	defer s.fileLock.Unlock()
	return fn()
}

// Load reads the configuration document from disk (creating a default one
// if absent), deep-merges the project overlay over it, migrates legacy
// schema versions, validates it, and caches the result. Warnings returned
// are advisory (e.g. a target path that doesn't currently exist).
func (s *Store) Load() (*Document, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Document, []string, error) {
	raw, mtime, err := s.readUserDocument()
	if err != nil {
		return nil, nil, &errs.ConfigurationError{Op: "load", Cause: err}
	}

	migrated, err := migrateLegacy(raw)
	if err != nil {
		return nil, nil, &errs.ConfigurationError{Op: "load", Cause: fmt.Errorf("migration: %w", err)}
	}

	var doc Document
	if err := json.Unmarshal(migrated, &doc); err != nil {
		return nil, nil, &errs.ConfigurationError{Op: "load", Cause: err}
	}

	if s.overlayPath != "" {
		if overlayRaw, err := os.ReadFile(s.overlayPath); err == nil {
			if err := deepMergeOverlay(&doc, overlayRaw); err != nil {
				return nil, nil, &errs.ConfigurationError{Op: "load", Cause: fmt.Errorf("project overlay: %w", err)}
			}
		} else if !os.IsNotExist(err) {
			return nil, nil, &errs.ConfigurationError{Op: "load", Cause: err}
		}
	}

	if doc.Settings != nil && doc.Settings.DefaultRepository != "" && doc.General.DefaultRepository == "" {
		doc.General.DefaultRepository = doc.Settings.DefaultRepository
	}

	result := s.validator.Validate(&doc)
	if result.Err != nil {
		return nil, nil, result.Err
	}

	s.cached = &doc
	s.cachedAt = time.Now()
	s.userMtime = mtime

	return cloneDocument(&doc), result.Warnings, nil
}

// readUserDocument reads the user/system config file, creating a default
// document the first time a TimeLocker process touches this configDir.
func (s *Store) readUserDocument() ([]byte, time.Time, error) {
	info, err := os.Stat(s.userPath)
	if os.IsNotExist(err) {
		doc := NewDefaultDocument()
		raw, marshalErr := json.MarshalIndent(doc, "", "  ")
		if marshalErr != nil {
			return nil, time.Time{}, marshalErr
		}
		if err := os.MkdirAll(filepath.Dir(s.userPath), 0o700); err != nil {
			return nil, time.Time{}, err
		}
		if err := os.WriteFile(s.userPath, raw, 0o600); err != nil {
			return nil, time.Time{}, err
		}
		info, err = os.Stat(s.userPath)
		if err != nil {
			return nil, time.Time{}, err
		}
		return raw, info.ModTime(), nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	raw, err := os.ReadFile(s.userPath)
	if err != nil {
		return nil, time.Time{}, err
	}
	return raw, info.ModTime(), nil
}

// staleLocked reports whether the on-disk file's mtime has advanced past
// what Store last read — i.e. another process rewrote it.
func (s *Store) staleLocked() bool {
	if s.cached == nil {
		return true
	}
	info, err := os.Stat(s.userPath)
	if err != nil {
		return true
	}
	return info.ModTime().After(s.userMtime)
}

// current returns the cached document, reloading first if the on-disk file
// changed since the last read.
func (s *Store) current() (*Document, error) {
	s.mu.RLock()
	stale := s.staleLocked()
	doc := s.cached
	s.mu.RUnlock()

	if !stale {
		return cloneDocument(doc), nil
	}

	d, _, err := s.Load()
	return d, err
}

// Save validates doc, rotates a timestamped backup of the previous file,
// mirrors General.DefaultRepository into the legacy Settings alias, and
// writes the new document atomically (write-temp, rename).
func (s *Store) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.validator.Validate(doc)
	if result.Err != nil {
		return result.Err
	}

	if doc.General.DefaultRepository != "" {
		doc.Settings = &legacySettings{DefaultRepository: doc.General.DefaultRepository}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &errs.ConfigurationError{Op: "save", Cause: err}
	}

	err = s.withFileLock(func() error {
		if err := s.rotateBackupLocked(); err != nil {
			s.logger.Warn("could not rotate config backup", "error", err)
		}

		tmp := s.userPath + ".tmp"
		if err := os.WriteFile(tmp, raw, 0o600); err != nil {
			return &errs.ConfigurationError{Op: "save", Cause: err}
		}
		if err := os.Rename(tmp, s.userPath); err != nil {
			return &errs.ConfigurationError{Op: "save", Cause: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	info, err := os.Stat(s.userPath)
	if err == nil {
		s.userMtime = info.ModTime()
	}
	s.cached = cloneDocument(doc)
	s.cachedAt = time.Now()
	return nil
}

func (s *Store) rotateBackupLocked() error {
	if _, err := os.Stat(s.userPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.MkdirAll(s.backupDir, 0o700); err != nil {
		return err
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	dest := filepath.Join(s.backupDir, fmt.Sprintf("config_backup_%s.json", ts))
	raw, err := os.ReadFile(s.userPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, raw, 0o600); err != nil {
		return err
	}
	return s.pruneBackupsLocked()
}

func (s *Store) pruneBackupsLocked() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for len(names) > maxConfigBackups {
		if err := os.Remove(filepath.Join(s.backupDir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

// GetSection returns a JSON-decoded view of a single named section.
func (s *Store) GetSection(name string, out any) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	raw, err := sectionRaw(doc, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// UpdateSection replaces a named section with the contents of update (a
// map, matching spec.md §4.2's update_section(name, map) signature) and
// persists the result.
func (s *Store) UpdateSection(name string, update map[string]any) error {
	s.mu.Lock()
	doc := s.cached
	s.mu.Unlock()
	if doc == nil {
		var err error
		doc, _, err = s.Load()
		if err != nil {
			return err
		}
	}
	doc = cloneDocument(doc)

	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if err := assignSection(doc, name, raw); err != nil {
		return err
	}
	return s.Save(doc)
}

// AddRepository inserts or replaces a repository descriptor and persists it.
func (s *Store) AddRepository(d RepositoryDescriptor) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	if doc.Repositories == nil {
		doc.Repositories = map[string]RepositoryDescriptor{}
	}
	doc.Repositories[d.Name] = d
	return s.Save(doc)
}

// RemoveRepository deletes a repository descriptor by name.
func (s *Store) RemoveRepository(name string) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	if _, ok := doc.Repositories[name]; !ok {
		return &errs.RepositoryNotFoundError{Name: name}
	}
	delete(doc.Repositories, name)
	return s.Save(doc)
}

// GetRepository fetches a single repository descriptor by name.
func (s *Store) GetRepository(name string) (RepositoryDescriptor, error) {
	doc, err := s.current()
	if err != nil {
		return RepositoryDescriptor{}, err
	}
	d, ok := doc.Repositories[name]
	if !ok {
		return RepositoryDescriptor{}, &errs.RepositoryNotFoundError{Name: name}
	}
	return d, nil
}

// AddTarget inserts or replaces a backup target descriptor and persists it.
func (s *Store) AddTarget(d BackupTargetDescriptor) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	if doc.BackupTargets == nil {
		doc.BackupTargets = map[string]BackupTargetDescriptor{}
	}
	doc.BackupTargets[d.Name] = d
	return s.Save(doc)
}

// RemoveTarget deletes a backup target descriptor by name.
func (s *Store) RemoveTarget(name string) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	if _, ok := doc.BackupTargets[name]; !ok {
		return &errs.TargetNotFoundError{Name: name}
	}
	delete(doc.BackupTargets, name)
	return s.Save(doc)
}

// GetTarget fetches a single backup target descriptor by name.
func (s *Store) GetTarget(name string) (BackupTargetDescriptor, error) {
	doc, err := s.current()
	if err != nil {
		return BackupTargetDescriptor{}, err
	}
	d, ok := doc.BackupTargets[name]
	if !ok {
		return BackupTargetDescriptor{}, &errs.TargetNotFoundError{Name: name}
	}
	return d, nil
}

// SetDefaultRepository updates general.default_repository, failing if the
// name does not resolve.
func (s *Store) SetDefaultRepository(name string) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	if _, ok := doc.Repositories[name]; !ok {
		return &errs.RepositoryNotFoundError{Name: name}
	}
	doc.General.DefaultRepository = name
	return s.Save(doc)
}

// ReloadConfiguration forces the cache to be discarded and the document
// re-read from disk, even if the mtime hasn't advanced.
func (s *Store) ReloadConfiguration() (*Document, []string, error) {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return s.Load()
}

// Export writes the current document to path, in JSON or YAML depending on
// the file extension.
func (s *Store) Export(path string) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	var raw []byte
	if filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml" {
		raw, err = yaml.Marshal(doc)
	} else {
		raw, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return &errs.ConfigurationError{Op: "export", Cause: err}
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return &errs.ConfigurationError{Op: "export", Cause: err}
	}
	return nil
}

// Import reads a document from path (JSON or YAML by extension), validates
// it, and makes it the active configuration.
func (s *Store) Import(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &errs.ConfigurationError{Op: "import", Cause: err}
	}

	var doc Document
	if filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml" {
		err = yaml.Unmarshal(raw, &doc)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return &errs.ConfigurationError{Op: "import", Cause: err}
	}

	return s.Save(&doc)
}

// ResetToDefaults backs up the current document (if any) and writes a fresh
// default document.
func (s *Store) ResetToDefaults() error {
	s.mu.Lock()
	if err := s.rotateBackupLocked(); err != nil {
		s.logger.Warn("could not rotate config backup before reset", "error", err)
	}
	s.mu.Unlock()

	return s.Save(NewDefaultDocument())
}

func cloneDocument(doc *Document) *Document {
	raw, err := json.Marshal(doc)
	if err != nil {
		// Document always marshals successfully (it's plain structs + maps);
		// a failure here indicates a programmer error, not a runtime condition.
		panic(fmt.Sprintf("config: clone marshal: %v", err))
	}
	var clone Document
	if err := json.Unmarshal(raw, &clone); err != nil {
		panic(fmt.Sprintf("config: clone unmarshal: %v", err))
	}
	return &clone
}
