// Package errs defines the error taxonomy shared by every TimeLocker
// orchestration component (spec.md §7). Each kind is a small struct type
// implementing error (kinds that wrap a cause also implement Unwrap),
// following the pattern the teacher uses in
// its storage package (ErrInvalidProfile, ErrStorageInitFailed, ...): a
// named Go type per failure mode instead of sentinel string matching,
// so callers can use errors.As to branch on kind.
package errs

import (
	"errors"
	"fmt"
)

// ErrPasswordRequired is the Cause of a RepositoryFactoryError when no
// password could be resolved from any source (explicit, vault, environment)
// for an operation that requires one (spec.md §4.5 step 4).
var ErrPasswordRequired = errors.New("no repository password available")

// ConfigurationError covers load/save/validate/I-O failures in the typed
// configuration store (C2).
type ConfigurationError struct {
	Op    string // "load", "save", "validate", "export", "import"
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s failed: %v", e.Op, e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// InvalidConfigurationError indicates a schema-validation failure (C2),
// distinct from a plain I/O or JSON-parse ConfigurationError.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// RepositoryNotFoundError is returned by C2's get_repository/get_target and
// by any operation that resolves a repository/target name.
type RepositoryNotFoundError struct {
	Name string
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("repository not found: %s", e.Name)
}

// TargetNotFoundError mirrors RepositoryNotFoundError for backup targets.
type TargetNotFoundError struct {
	Name string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("backup target not found: %s", e.Name)
}

// RepositoryFactoryError covers C5 (unsupported scheme, build failure).
type RepositoryFactoryError struct {
	URI   string
	Cause error
}

func (e *RepositoryFactoryError) Error() string {
	return fmt.Sprintf("cannot build repository for %q: %v", e.URI, e.Cause)
}

func (e *RepositoryFactoryError) Unwrap() error { return e.Cause }

// UnsupportedSchemeError is a specific RepositoryFactoryError cause: the URI
// scheme has no registered backend.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported repository scheme: %q", e.Scheme)
}

// MissingLocalSchemeError fires when a user supplies a bare path without an
// explicit file:// scheme (spec.md §6.5).
type MissingLocalSchemeError struct {
	Path string
}

func (e *MissingLocalSchemeError) Error() string {
	return fmt.Sprintf("path %q has no repository scheme; did you mean file://%s ?", e.Path, e.Path)
}

// CredentialError covers C3 (locked, lockout, not-found, decrypt failures).
type CredentialError struct {
	Kind  CredentialErrorKind
	Cause error
}

// CredentialErrorKind enumerates the reasons a vault operation can fail.
type CredentialErrorKind string

const (
	CredentialLocked      CredentialErrorKind = "locked"
	CredentialLockedOut   CredentialErrorKind = "locked_out"
	CredentialNotFound    CredentialErrorKind = "not_found"
	CredentialDecryptFail CredentialErrorKind = "decrypt_failed"
)

func (e *CredentialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("credential error (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("credential error: %s", e.Kind)
}

func (e *CredentialError) Unwrap() error { return e.Cause }

// CredentialAccessError is raised when the vault is locked, or in lockout,
// and the caller attempted a read/write without first unlocking.
type CredentialAccessError struct {
	Reason string
}

func (e *CredentialAccessError) Error() string {
	return fmt.Sprintf("credential vault access denied: %s", e.Reason)
}

// CredentialSecurityError indicates an integrity violation detected while
// decrypting or verifying the vault's on-disk ciphertext.
type CredentialSecurityError struct {
	Cause error
}

func (e *CredentialSecurityError) Error() string {
	return fmt.Sprintf("credential vault integrity violation: %v", e.Cause)
}

func (e *CredentialSecurityError) Unwrap() error { return e.Cause }

// CredentialManagerError covers plain I/O failures talking to the vault's
// on-disk files.
type CredentialManagerError struct {
	Op    string
	Cause error
}

func (e *CredentialManagerError) Error() string {
	return fmt.Sprintf("credential manager %s failed: %v", e.Op, e.Cause)
}

func (e *CredentialManagerError) Unwrap() error { return e.Cause }

// RepositoryErrorKind classifies engine-adapter failures (C4), per
// spec.md §4.4's substring-matching taxonomy.
type RepositoryErrorKind string

const (
	RepoNotInitialized RepositoryErrorKind = "not_initialized"
	RepoNotFound        RepositoryErrorKind = "not_found"
	RepoBadPassword     RepositoryErrorKind = "bad_password"
	RepoLocked          RepositoryErrorKind = "locked"
	RepoEngineError     RepositoryErrorKind = "engine_error"
)

// RepositoryError wraps a classified engine failure.
type RepositoryError struct {
	Kind   RepositoryErrorKind
	Detail string
}

func (e *RepositoryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("repository error (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("repository error: %s", e.Kind)
}

// Retryable reports whether this RepositoryError kind should be retried by
// the backup orchestrator's retry policy (spec.md §4.8's failure semantics).
func (e *RepositoryError) Retryable() bool {
	switch e.Kind {
	case RepoLocked, RepoEngineError:
		return true
	default:
		return false
	}
}

// BackupOrchestratorError covers C8 (invalid config, execution, cancellation).
type BackupOrchestratorError struct {
	Reason string
	Cause  error
}

func (e *BackupOrchestratorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backup failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("backup failed: %s", e.Reason)
}

func (e *BackupOrchestratorError) Unwrap() error { return e.Cause }

// InvalidBackupConfigurationError is a fatal, non-retryable BackupOrchestratorError cause.
type InvalidBackupConfigurationError struct {
	Reason string
}

func (e *InvalidBackupConfigurationError) Error() string {
	return fmt.Sprintf("invalid backup configuration: %s", e.Reason)
}

// RestoreErrorKind classifies C9 failures.
type RestoreErrorKind string

const (
	RestoreTarget       RestoreErrorKind = "target"
	RestorePermission   RestoreErrorKind = "permission"
	RestoreSpace        RestoreErrorKind = "space"
	RestoreVerification RestoreErrorKind = "verification"
	RestoreInterrupted  RestoreErrorKind = "interrupted"
	RestoreEngine       RestoreErrorKind = "engine"
)

// RestoreError wraps a classified restore failure.
type RestoreError struct {
	Kind   RestoreErrorKind
	Detail string
	Cause  error
}

func (e *RestoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("restore failed (%s): %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("restore failed (%s): %s", e.Kind, e.Detail)
}

func (e *RestoreError) Unwrap() error { return e.Cause }

// InsufficientSpaceError is a specific RestoreError cause.
type InsufficientSpaceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient space: need %d bytes, have %d", e.Required, e.Available)
}

// RestorePermissionError is a specific RestoreError cause.
type RestorePermissionError struct {
	Path  string
	Cause error
}

func (e *RestorePermissionError) Error() string {
	return fmt.Sprintf("permission error at %q: %v", e.Path, e.Cause)
}

func (e *RestorePermissionError) Unwrap() error { return e.Cause }

// RecoveryError names the case where the engine restore succeeded but
// post-verification found the result incomplete (supplemented from
// original_source/src/TimeLocker/recovery_errors.py per SPEC_FULL.md).
// The restore orchestrator does not return it: it reports such shortfalls
// as warnings on a completed result.
type RecoveryError struct {
	Reason string
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("recovery incomplete: %s", e.Reason)
}

// SnapshotNotFoundError is raised by C7 when a snapshot ID/prefix does not
// resolve to exactly one snapshot.
type SnapshotNotFoundError struct {
	IDOrPrefix string
}

func (e *SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("snapshot not found: %s", e.IDOrPrefix)
}

// InvalidSnapshotIDError is raised when a snapshot ID fails the
// ^[0-9a-f]{4,64}$ format check (spec.md §4.7, §8).
type InvalidSnapshotIDError struct {
	Value string
}

func (e *InvalidSnapshotIDError) Error() string {
	return fmt.Sprintf("invalid snapshot ID: %q", e.Value)
}
