package security

import (
	"os"
	"path/filepath"
	"time"
)

func lockdownMarkerPath(dir string) string {
	return filepath.Join(dir, "lockdown.marker")
}

// EmergencyLockdown locks the vault, invokes clearCaches (if non-nil) to
// drop any in-memory snapshot/credential caches, writes a marker file, and
// emits a CRITICAL audit event. The marker makes the lockdown state
// durable: IsLockedDown reports true on every subsequent process start
// until an operator removes the marker (spec.md §4.11).
func (s *Service) EmergencyLockdown(reason string, clearCaches func()) error {
	if s.vault != nil {
		s.vault.Lock()
	}
	if clearCaches != nil {
		clearCaches()
	}
	if err := os.WriteFile(s.lockdownAt, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"+reason+"\n"), 0o600); err != nil {
		return err
	}
	return s.audit.Append(Event{
		Type:        EventEmergencyLockdown,
		Level:       LevelCritical,
		Description: "emergency lockdown triggered: " + reason,
	})
}

// IsLockedDown reports whether a prior EmergencyLockdown marker is still
// present, surviving process restarts until an operator clears it.
func (s *Service) IsLockedDown() bool {
	_, err := os.Stat(s.lockdownAt)
	return err == nil
}

// ClearLockdown removes the lockdown marker, allowing normal operation to
// resume. This is an explicit operator action, never automatic.
func (s *Service) ClearLockdown() error {
	err := os.Remove(s.lockdownAt)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
