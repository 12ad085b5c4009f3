package security

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// AuditLog is an append-only security event trail rooted at a single file
// (<config dir>/security/audit.log), grounded on vault's auditLog but
// widened to the full OperationStatus/security event vocabulary rather
// than credential operations alone.
type AuditLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewAuditLog opens (creating if absent) the audit log at dir/audit.log.
func NewAuditLog(dir string) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("security: create audit directory: %w", err)
	}
	path := filepath.Join(dir, "audit.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("security: open audit log: %w", err)
	}
	return &AuditLog{path: path, file: file}, nil
}

// Append writes one audit line: timestamp|type|level|description|user|
// repository|metadata (metadata as comma-separated key=value pairs).
func (a *AuditLog) Append(e Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	line := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s\n",
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Type,
		e.Level,
		sanitize(e.Description),
		sanitize(e.User),
		sanitize(e.Repository),
		encodeMetadata(e.Metadata),
	)
	_, err := a.file.WriteString(line)
	return err
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}

func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, sanitize(k)+"="+sanitize(v))
	}
	return strings.Join(parts, ",")
}

// Close releases the underlying file handle.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// Summary counts events by type and level within the past `days` days.
type Summary struct {
	ByType  map[EventType]int
	ByLevel map[Level]int
	Total   int
}

// GetSummary reads the audit log and tallies events whose timestamp falls
// within the last `days` days (spec.md §4.11's get_security_summary).
func (a *AuditLog) GetSummary(days int) (*Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.file.Sync(); err != nil {
		return nil, err
	}
	f, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cutoff := time.Now().AddDate(0, 0, -days)
	summary := &Summary{ByType: map[EventType]int{}, ByLevel: map[Level]int{}}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "|", 7)
		if len(fields) < 3 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, fields[0])
		if err != nil || ts.Before(cutoff) {
			continue
		}
		summary.ByType[EventType(fields[1])]++
		summary.ByLevel[Level(fields[2])]++
		summary.Total++
	}
	return summary, scanner.Err()
}
