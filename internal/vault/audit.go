package vault

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// auditLog appends to the vault's two append-only log files: a structured
// credential-operation audit trail and a plain access log, per spec.md
// §4.3 ("All operations append to the audit log with
// timestamp|operation|key|success|details lines").
type auditLog struct {
	mu          sync.Mutex
	auditFile   *os.File
	accessFile  *os.File
}

func newAuditLog(auditPath, accessPath string) (*auditLog, error) {
	auditFile, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	accessFile, err := os.OpenFile(accessPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		auditFile.Close()
		return nil, err
	}
	return &auditLog{auditFile: auditFile, accessFile: accessFile}, nil
}

// append writes one line to both logs. Failures to write the audit trail
// are swallowed (stderr warning only) rather than propagated — a vault
// operation that otherwise succeeded must not fail just because disk space
// ran out on the log partition.
func (a *auditLog) append(operation, key string, success bool, details string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	line := fmt.Sprintf("%s|%s|%s|%t|%s\n",
		time.Now().UTC().Format(time.RFC3339), operation, key, success, strings.ReplaceAll(details, "|", "/"))

	if _, err := a.auditFile.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "vault: audit log write failed: %v\n", err)
	}
	if _, err := a.accessFile.WriteString(line); err != nil {
		fmt.Fprintf(os.Stderr, "vault: access log write failed: %v\n", err)
	}
}

func (a *auditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err1 := a.auditFile.Close()
	err2 := a.accessFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
