// Package status implements the status event bus (C10): a process-wide
// publisher that invokes registered sinks synchronously, persists events as
// JSON-Lines under a status directory, and sweeps old files on startup.
// Grounded on the teacher's internal/realtime event bus, adapted from
// async channel-broadcast-to-many-WebSocket-subscribers into the
// spec's synchronous-per-sink, best-effort delivery model.
package status

import "time"

// OperationType enumerates the kinds of operations C10 reports on.
type OperationType string

const (
	OperationBackup  OperationType = "backup"
	OperationRestore OperationType = "restore"
	OperationVerify  OperationType = "verify"
	OperationCheck   OperationType = "check"
	OperationPrune   OperationType = "prune"
	OperationForget  OperationType = "forget"
	OperationMount   OperationType = "mount"
)

// Status is the lifecycle state of a single operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusWarning   Status = "warning"
	StatusError     Status = "error"
	StatusCritical  Status = "critical"
	StatusCancelled Status = "cancelled"
)

// OperationStatus is the event type C10 publishes (spec.md §3). A single
// operation emits a pending -> running -> terminal chain; the bus
// guarantees at least one event per terminal state.
type OperationStatus struct {
	OperationID   string                 `json:"operation_id"`
	OperationType OperationType          `json:"operation_type"`
	Status        Status                 `json:"status"`
	RepositoryID  string                 `json:"repository_id,omitempty"`
	Message       string                 `json:"message,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]any         `json:"metadata,omitempty"`

	// Sequence is assigned by the bus at publish time; FIFO per publisher
	// thread, no cross-thread ordering guarantee (spec.md §4.10).
	Sequence int64 `json:"sequence"`
}

// IsTerminal reports whether status ends the operation's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusWarning, StatusError, StatusCritical, StatusCancelled:
		return true
	default:
		return false
	}
}
