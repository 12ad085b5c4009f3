package security

import (
	"context"
	"fmt"

	"github.com/auriora/timelocker/internal/repository"
)

// Service (C11) wraps the audit log with the two backup/restore safety
// policies spec.md §4.11 names and the emergency lockdown operation.
type Service struct {
	audit      *AuditLog
	vault      Locker
	lockdownAt string
}

// Locker is the subset of vault.Vault emergency_lockdown needs. Defined
// here (rather than importing vault directly) so security stays
// independent of the vault package's concrete type, mirroring C5's
// PasswordSource/CredentialSource seam.
type Locker interface {
	Lock()
}

// NewService constructs a Service backed by an audit log rooted at dir.
func NewService(dir string, vault Locker) (*Service, error) {
	audit, err := NewAuditLog(dir)
	if err != nil {
		return nil, err
	}
	return &Service{audit: audit, vault: vault, lockdownAt: lockdownMarkerPath(dir)}, nil
}

// CheckEncryptionBeforeBackup implements the permissive unencrypted-
// repository policy (spec.md §4.11, §9 Open Questions): an unencrypted
// repository logs a HIGH event but the backup proceeds.
func (s *Service) CheckEncryptionBeforeBackup(repositoryName string, encrypted bool) error {
	if encrypted {
		return nil
	}
	return s.audit.Append(Event{
		Type:        EventUnencryptedRepo,
		Level:       LevelHigh,
		Description: "backup proceeding against an unencrypted repository",
		Repository:  repositoryName,
	})
}

// CheckIntegrityBeforeRestore runs check via repoSvc and refuses the
// restore (returning an error whose message mentions "integrity") if it
// fails, emitting a CRITICAL event. This must be called — and must return
// nil — before the restore orchestrator spawns the engine's restore
// (spec.md §4.11 scenario 6).
func (s *Service) CheckIntegrityBeforeRestore(ctx context.Context, repositoryName string, repoSvc *repository.Service) error {
	if _, err := repoSvc.Check(ctx); err != nil {
		_ = s.audit.Append(Event{
			Type:        EventIntegrityCheck,
			Level:       LevelCritical,
			Description: fmt.Sprintf("repository integrity check failed, restore refused: %v", err),
			Repository:  repositoryName,
		})
		return fmt.Errorf("security: refusing restore, repository integrity check failed: %w", err)
	}
	return nil
}

// LogOperation appends a plain audit event for a completed backup/restore/
// credential operation (spec.md §4.10's "audit ingress includes ...
// backup/restore/integrity operations").
func (s *Service) LogOperation(e Event) error {
	return s.audit.Append(e)
}

// GetSecuritySummary returns event counts over the last `days` days.
func (s *Service) GetSecuritySummary(days int) (*Summary, error) {
	return s.audit.GetSummary(days)
}

// Close releases the audit log's file handle.
func (s *Service) Close() error {
	return s.audit.Close()
}
