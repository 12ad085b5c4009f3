// Package security implements the security service (C11): an append-only
// audit trail plus the two backup/restore safety policies spec.md §4.11
// names (unencrypted-repository warning, integrity-before-restore
// enforcement), a rolling summary, and emergency lockdown.
package security

import "time"

// EventType classifies an audit event.
type EventType string

const (
	EventUnlock            EventType = "unlock"
	EventLock              EventType = "lock"
	EventCredentialRead    EventType = "credential_read"
	EventCredentialWrite   EventType = "credential_write"
	EventBackup            EventType = "backup"
	EventRestore           EventType = "restore"
	EventIntegrityCheck    EventType = "integrity_check"
	EventUnencryptedRepo   EventType = "unencrypted_repository"
	EventEmergencyLockdown EventType = "emergency_lockdown"
)

// Level is the severity of an audit event, mirroring status.Status's
// terminal vocabulary for events serious enough to need operator attention.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Event is one audit-log entry.
type Event struct {
	Timestamp    time.Time
	Type         EventType
	Level        Level
	Description  string
	User         string
	Repository   string
	Metadata     map[string]string
}
