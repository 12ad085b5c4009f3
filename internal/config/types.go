// Package config implements TimeLocker's typed configuration store (C2):
// a single JSON document describing repositories, targets, and user
// preferences, merged with a project-scoped overlay and validated before
// use (spec.md §4.2, §6.1).
package config

import "encoding/json"

// SchemaVersion is bumped whenever a migration step is added to migrations.go.
const SchemaVersion = 2

// Document is the full on-disk configuration document. Unknown top-level
// keys are preserved via Extra so a newer TimeLocker release's document can
// round-trip through an older or customized tool without data loss
// (spec.md §4.2's "unknown fields are preserved on round-trip").
type Document struct {
	SchemaVersion int                            `json:"schema_version"`
	General       GeneralSection                 `json:"general"`
	Backup        BackupSection                  `json:"backup"`
	Restore       RestoreSection                 `json:"restore"`
	Security      SecuritySection                `json:"security"`
	UI            UISection                      `json:"ui"`
	Notifications NotificationsSection           `json:"notifications"`
	Monitoring    MonitoringSection              `json:"monitoring"`
	Repositories  map[string]RepositoryDescriptor `json:"repositories"`
	BackupTargets map[string]BackupTargetDescriptor `json:"backup_targets"`

	// Settings is the legacy top-level alias for general.default_repository
	// (spec.md §6.1's "Backward-compatible alias"). Populated on save; on
	// load its value is copied into General when General has no default
	// repository, and Settings itself is kept.
	Settings *legacySettings `json:"settings,omitempty"`

	// Extra preserves any top-level key this Document doesn't model.
	Extra map[string]json.RawMessage `json:"-"`
}

type legacySettings struct {
	DefaultRepository string `json:"default_repository,omitempty"`
}

// GeneralSection holds process-wide defaults.
type GeneralSection struct {
	DefaultRepository string `json:"default_repository,omitempty" validate:"omitempty"`
	LogLevel          string `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat         string `json:"log_format" validate:"oneof=json text"`
}

// BackupSection holds C8 defaults.
type BackupSection struct {
	MaxRetries           int     `json:"max_retries" validate:"min=0,max=20"`
	RetryDelaySeconds    float64 `json:"retry_delay_seconds" validate:"min=0"`
	BackoffMultiplier    float64 `json:"backoff_multiplier" validate:"min=1"`
	MaxConcurrentBackups int     `json:"max_concurrent_backups" validate:"min=1,max=64"`
	VerifyAfterBackup    bool    `json:"verify_after_backup"`
	CompressionLevel     string  `json:"compression_level" validate:"oneof=auto off max"`
	ExcludeCaches        bool    `json:"exclude_caches"`
}

// RestoreSection holds C9 defaults.
type RestoreSection struct {
	VerifyAfterRestore            bool   `json:"verify_after_restore"`
	CreateTargetDirectory          bool   `json:"create_target_directory"`
	ConflictResolution             string `json:"conflict_resolution" validate:"oneof=skip overwrite keep_both prompt"`
	StrictVerificationTimeout      bool   `json:"strict_verification_timeout"`
	CheckReadDataTimeoutSeconds    int    `json:"check_read_data_timeout_seconds" validate:"min=1"`
}

// SecuritySection holds C11 policy toggles.
type SecuritySection struct {
	RequireEncryptedRepository bool `json:"require_encrypted_repository"`
	AutoLockTimeoutSeconds     int  `json:"auto_lock_timeout_seconds" validate:"min=0"`
	MaxUnlockAttempts          int  `json:"max_unlock_attempts" validate:"min=1"`
	LockoutSeconds             int  `json:"lockout_seconds" validate:"min=0"`
}

// UISection holds cosmetic preferences untouched by the core but preserved
// through the config store for the CLI adapter's benefit.
type UISection struct {
	Color   bool   `json:"color"`
	Spinner bool   `json:"spinner"`
	DateFmt string `json:"date_format,omitempty"`
}

// NotificationsSection configures external sinks behind the status bus.
type NotificationsSection struct {
	Enabled    bool     `json:"enabled"`
	Email      string   `json:"email,omitempty" validate:"omitempty,email"`
	OnEvents   []string `json:"on_events,omitempty"`
}

// MonitoringSection configures the Prometheus metrics sink.
type MonitoringSection struct {
	Enabled            bool   `json:"enabled"`
	StatusRetentionDays int   `json:"status_retention_days" validate:"min=1"`
}

// RepositoryDescriptor is a persisted repository entry (spec.md §3).
type RepositoryDescriptor struct {
	Name                   string   `json:"name" validate:"required,excludesall=/\\"`
	Location               string   `json:"location" validate:"required"`
	Description            string   `json:"description,omitempty"`
	Tags                   []string `json:"tags,omitempty"`
	HasBackendCredentials  bool     `json:"has_backend_credentials"`
	Enabled                bool     `json:"enabled"`
	ReadOnly               bool     `json:"read_only"`
}

// BackupTargetDescriptor is a persisted backup-target entry (spec.md §3).
type BackupTargetDescriptor struct {
	Name             string   `json:"name" validate:"required"`
	RepositoryName   string   `json:"repository_name" validate:"required"`
	Paths            []string `json:"paths" validate:"required,min=1"`
	IncludePatterns  []string `json:"include_patterns,omitempty"`
	ExcludePatterns  []string `json:"exclude_patterns,omitempty"`
	ExcludeFiles     []string `json:"exclude_files,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Schedule         string   `json:"schedule,omitempty"`
	PreScript        string   `json:"pre_script,omitempty"`
	PostScript       string   `json:"post_script,omitempty"`
	Enabled          bool     `json:"enabled"`
}
