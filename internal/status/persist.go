package status

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultRetentionDays is status_retention_days' default (spec.md §4.10).
const DefaultRetentionDays = 30

// JSONLSink appends every published event as one JSON line to a
// date-stamped file under dir (the status directory), for post-mortem
// review. Nothing in this module reads the files back; the integration
// facade has no view built on them.
type JSONLSink struct {
	mu     sync.Mutex
	dir    string
	file   *os.File
	date   string
	logger *slog.Logger
}

// NewJSONLSink constructs a JSONLSink rooted at dir, creating it if
// necessary.
func NewJSONLSink(dir string, logger *slog.Logger) (*JSONLSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("status: create directory %s: %w", dir, err)
	}
	return &JSONLSink{dir: dir, logger: logger}, nil
}

func (j *JSONLSink) pathFor(date string) string {
	return filepath.Join(j.dir, fmt.Sprintf("status-%s.jsonl", date))
}

// HandleStatus implements Sink. File rollover happens on UTC date change.
func (j *JSONLSink) HandleStatus(event OperationStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()

	date := event.Timestamp.UTC().Format("2006-01-02")
	if j.file == nil || date != j.date {
		if j.file != nil {
			_ = j.file.Close()
		}
		f, err := os.OpenFile(j.pathFor(date), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			j.logger.Warn("status: cannot open jsonl file", "error", err)
			return
		}
		j.file = f
		j.date = date
	}

	line, err := json.Marshal(event)
	if err != nil {
		j.logger.Warn("status: cannot marshal event", "error", err)
		return
	}
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		j.logger.Warn("status: cannot write event", "error", err)
	}
}

// Close releases the current file handle.
func (j *JSONLSink) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	return j.file.Close()
}

// SweepRetention deletes status-*.jsonl files older than retentionDays,
// run as a background sweep at startup (spec.md §4.10).
func SweepRetention(dir string, retentionDays int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("status: read directory %s: %w", dir, err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("status-*.jsonl", entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				logger.Warn("status: failed to prune old status file", "path", path, "error", err)
			}
		}
	}
	return nil
}
