// Package vault implements TimeLocker's encrypted credential store (C3):
// an at-rest key/value store for repository passwords and backend
// credentials, with auto-unlock, lockout, and an append-only audit trail.
package vault

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/pkg/metrics"
)

// State is the vault's in-memory lock state.
type State string

const (
	StateLocked   State = "locked"
	StateUnlocked State = "unlocked"
)

const (
	defaultAutoLockTimeout  = 1800 * time.Second
	defaultMaxUnlockAttempts = 5
	defaultLockoutDuration  = 300 * time.Second
)

// Config tunes the vault's lockout and auto-lock behavior. Its fields
// mirror config.SecuritySection's, but nothing binds one to the other: the
// CLI passes DefaultConfig(), so the config document's security values do
// not reach the vault.
type Config struct {
	AutoLockTimeout   time.Duration
	MaxUnlockAttempts int
	LockoutDuration   time.Duration
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		AutoLockTimeout:   defaultAutoLockTimeout,
		MaxUnlockAttempts: defaultMaxUnlockAttempts,
		LockoutDuration:   defaultLockoutDuration,
	}
}

// Vault is the encrypted credential store rooted at a single directory
// (spec.md §6.2: salt, credentials.enc, credential_audit.log, access.log).
type Vault struct {
	mu sync.Mutex

	dir       string
	saltPath  string
	credsPath string
	fileLock  *flock.Flock

	cfg     Config
	state   State
	key     []byte
	unlockedAt time.Time

	failedAttempts    int
	lastFailedAttempt time.Time

	audit   *auditLog
	metrics *metrics.VaultMetrics
	logger  *slog.Logger

	getenv func(string) string
}

// New constructs a Vault rooted at dir, creating the directory if absent.
func New(dir string, cfg Config, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, &errs.CredentialManagerError{Op: "init", Cause: err}
	}

	audit, err := newAuditLog(filepath.Join(dir, "credential_audit.log"), filepath.Join(dir, "access.log"))
	if err != nil {
		return nil, &errs.CredentialManagerError{Op: "init", Cause: err}
	}

	return &Vault{
		dir:       dir,
		saltPath:  filepath.Join(dir, "salt"),
		credsPath: filepath.Join(dir, "credentials.enc"),
		fileLock:  flock.New(filepath.Join(dir, "credentials.enc.lock")),
		cfg:       cfg,
		state:     StateLocked,
		audit:     audit,
		metrics:   metrics.DefaultRegistry().Vault(),
		logger:    logger,
		getenv:    os.Getenv,
	}, nil
}

// IsUnlocked reports whether the vault currently holds a key in memory,
// auto-locking first if auto_lock_timeout has elapsed since the last unlock.
func (v *Vault) IsUnlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isUnlockedLocked()
}

func (v *Vault) isUnlockedLocked() bool {
	if v.state != StateUnlocked {
		return false
	}
	if v.cfg.AutoLockTimeout > 0 && time.Since(v.unlockedAt) > v.cfg.AutoLockTimeout {
		v.lockLocked()
		return false
	}
	return true
}

// inLockout reports whether too many recent failed manual-unlock attempts
// are blocking further attempts.
func (v *Vault) inLockout() bool {
	if v.failedAttempts < v.cfg.MaxUnlockAttempts {
		return false
	}
	return time.Since(v.lastFailedAttempt) < v.cfg.LockoutDuration
}

// Unlock derives the master key from password and the on-disk salt,
// verifying it against the existing ciphertext (or creating a fresh,
// empty vault document if none exists yet).
//
// Failed manual attempts increment failed_attempts; at
// cfg.MaxUnlockAttempts the vault refuses further attempts for
// cfg.LockoutDuration, per spec.md §4.3.
func (v *Vault) Unlock(password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unlockLocked(password)
}

// unlockLocked derives the master key for a manual unlock attempt from
// password and the vault's on-disk salt file, then applies it.
func (v *Vault) unlockLocked(password string) error {
	if v.inLockout() {
		v.audit.append("unlock", "", false, "lockout active")
		v.metrics.LockoutsTotal.Inc()
		return &errs.CredentialAccessError{Reason: "too many failed unlock attempts; locked out"}
	}

	salt, err := v.loadOrCreateSalt()
	if err != nil {
		return &errs.CredentialManagerError{Op: "unlock", Cause: err}
	}

	return v.applyKeyLocked(deriveKey(password, salt), "manual", true)
}

// applyKeyLocked attempts to unlock the vault with a derived key, verifying
// it against the on-disk ciphertext (or accepting it outright if no
// ciphertext exists yet — first unlock of a fresh vault). countsTowardLockout
// gates whether a failure increments the manual-attempt counter; spec.md
// §4.3 says auto-unlock failures must never count against it.
func (v *Vault) applyKeyLocked(key []byte, method string, countsTowardLockout bool) error {
	if _, err := os.Stat(v.credsPath); err == nil {
		if _, err := v.readDocument(key); err != nil {
			if countsTowardLockout {
				v.failedAttempts++
				v.lastFailedAttempt = time.Now()
			}
			v.audit.append("unlock", "", false, "bad password or corrupt vault")
			v.metrics.UnlockAttemptsTotal.WithLabelValues(method, "failure").Inc()
			return &errs.CredentialSecurityError{Cause: err}
		}
	} else if os.IsNotExist(err) {
		if err := v.writeDocument(key, &vaultDocument{}); err != nil {
			return &errs.CredentialManagerError{Op: "unlock", Cause: err}
		}
	} else {
		return &errs.CredentialManagerError{Op: "unlock", Cause: err}
	}

	v.key = key
	v.state = StateUnlocked
	v.unlockedAt = time.Now()
	v.failedAttempts = 0

	v.metrics.UnlockAttemptsTotal.WithLabelValues(method, "success").Inc()
	v.metrics.State.Set(1)
	v.audit.append("unlock", "", true, method)
	return nil
}

// AutoUnlock derives a deterministic per-machine key from the system
// fingerprint under the fixed auto-unlock salt (spec.md §4.3) and attempts
// to unlock with it. Failures never count against the manual lockout
// counter.
func (v *Vault) AutoUnlock() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := autoUnlockKey()
	if err != nil {
		return &errs.CredentialManagerError{Op: "auto_unlock", Cause: err}
	}
	return v.applyKeyLocked(key, "auto", false)
}

// EnsureUnlocked implements spec.md §4.3's chain: already unlocked ->
// AutoUnlock -> TIMELOCKER_MASTER_PASSWORD env var -> interactive prompt
// (only if allowPrompt and stdin is a terminal).
func (v *Vault) EnsureUnlocked(ctx context.Context, allowPrompt bool) error {
	if v.IsUnlocked() {
		return nil
	}
	if err := v.AutoUnlock(); err == nil {
		return nil
	}

	if pw := v.getenv("TIMELOCKER_MASTER_PASSWORD"); pw != "" {
		if err := v.Unlock(pw); err == nil {
			return nil
		}
	}

	if allowPrompt && isTerminal(os.Stdin) {
		pw, err := promptPassword(ctx)
		if err != nil {
			return &errs.CredentialManagerError{Op: "ensure_unlocked", Cause: err}
		}
		return v.Unlock(pw)
	}

	return &errs.CredentialAccessError{Reason: "vault is locked and no unlock method succeeded"}
}

// Lock zeroes the in-memory key.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lockLocked()
}

func (v *Vault) lockLocked() {
	for i := range v.key {
		v.key[i] = 0
	}
	v.key = nil
	v.state = StateLocked
	v.metrics.State.Set(0)
}

// Close releases the vault's on-disk log handles. The in-memory key, if
// any, is zeroed first.
func (v *Vault) Close() error {
	v.mu.Lock()
	v.lockLocked()
	v.mu.Unlock()
	return v.audit.Close()
}

func (v *Vault) loadOrCreateSalt() ([]byte, error) {
	if raw, err := os.ReadFile(v.saltPath); err == nil {
		return raw, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := readRandom(salt); err != nil {
		return nil, err
	}
	if err := os.WriteFile(v.saltPath, salt, 0o600); err != nil {
		return nil, err
	}
	return salt, nil
}
