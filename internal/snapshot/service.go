package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/repository"
)

// Service (C7) exposes snapshot listing, lookup, mount, search, and diff
// operations against a single resolved repository handle.
type Service struct {
	adapter *engine.Adapter
	handle  *repository.Handle
	cache   *listCache
	mounts  *mountRegistry
	logger  *slog.Logger
}

// NewService constructs a Service bound to a single resolved repository
// handle.
func NewService(adapter *engine.Adapter, handle *repository.Handle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		adapter: adapter,
		handle:  handle,
		cache:   newListCache(),
		mounts:  newMountRegistry(),
		logger:  logger,
	}
}

func (s *Service) args(base []string) []string {
	return append([]string{"--repo", s.handle.RepositoryArg()}, base...)
}

func filterCacheKey(f Filter) string {
	var b strings.Builder
	b.WriteString(strings.Join(f.Tags, ","))
	b.WriteByte('|')
	b.WriteString(f.Host)
	b.WriteByte('|')
	b.WriteString(strings.Join(f.Paths, ","))
	return b.String()
}

// List returns snapshots matching f, sorted newest-first, served from a
// 5-minute TTL cache when available (spec.md §4.7).
func (s *Service) List(ctx context.Context, f Filter) ([]Snapshot, error) {
	key := filterCacheKey(f)
	if cached, ok := s.cache.get(key); ok {
		return applyPostFilter(cached, f), nil
	}

	out, err := s.adapter.Output(ctx, s.args(engine.SnapshotsArgs(f.Tags, f.Host, f.Paths)), s.handle.BackendEnv())
	if err != nil {
		return nil, err
	}
	var snaps []Snapshot
	if err := json.Unmarshal(out, &snaps); err != nil {
		return nil, &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: fmt.Sprintf("parse snapshots: %v", err)}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Time.After(snaps[j].Time) })

	s.cache.set(key, snaps)
	return applyPostFilter(snaps, f), nil
}

func applyPostFilter(snaps []Snapshot, f Filter) []Snapshot {
	filtered := make([]Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if f.Matches(snap) {
			filtered = append(filtered, snap)
		}
	}
	if f.MaxResults > 0 && len(filtered) > f.MaxResults {
		filtered = filtered[:f.MaxResults]
	}
	return filtered
}

// GetByID returns the unique snapshot whose ID starts with prefix (at
// least 4 hex characters, per spec.md §4.7).
func (s *Service) GetByID(ctx context.Context, prefix string) (*Snapshot, error) {
	if !ValidID(prefix) {
		return nil, &errs.InvalidSnapshotIDError{Value: prefix}
	}
	snaps, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	var match *Snapshot
	for i := range snaps {
		if strings.HasPrefix(snaps[i].ID, prefix) {
			if match != nil {
				return nil, fmt.Errorf("snapshot: ambiguous prefix %q matches multiple snapshots", prefix)
			}
			m := snaps[i]
			match = &m
		}
	}
	if match == nil {
		return nil, &errs.SnapshotNotFoundError{IDOrPrefix: prefix}
	}
	return match, nil
}

// GetLatest returns the most recent snapshot matching f.
func (s *Service) GetLatest(ctx context.Context, f Filter) (*Snapshot, error) {
	snaps, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, &errs.SnapshotNotFoundError{IDOrPrefix: "latest"}
	}
	return &snaps[0], nil
}

// GetByDate returns the snapshot closest to target within toleranceHours,
// matching f.
func (s *Service) GetByDate(ctx context.Context, f Filter, target time.Time, toleranceHours float64) (*Snapshot, error) {
	snaps, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	tolerance := time.Duration(toleranceHours * float64(time.Hour))

	var best *Snapshot
	var bestDelta time.Duration
	for i := range snaps {
		delta := snaps[i].Time.Sub(target)
		if delta < 0 {
			delta = -delta
		}
		if delta > tolerance {
			continue
		}
		if best == nil || delta < bestDelta {
			m := snaps[i]
			best = &m
			bestDelta = delta
		}
	}
	if best == nil {
		return nil, &errs.SnapshotNotFoundError{IDOrPrefix: fmt.Sprintf("near %s", target.Format(time.RFC3339))}
	}
	return best, nil
}

type lsEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size uint64 `json:"size"`
}

// Contents lists a snapshot's file tree, optionally scoped to path.
func (s *Service) Contents(ctx context.Context, id, path string) ([]string, error) {
	if !ValidID(id) {
		return nil, &errs.InvalidSnapshotIDError{Value: id}
	}
	out, err := s.adapter.Output(ctx, s.args(engine.LsArgs(id, path)), s.handle.BackendEnv())
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e lsEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.Path != "" {
			entries = append(entries, e.Path)
		}
	}
	return entries, nil
}

// Mount starts the engine's FUSE mount of the repository at path in the
// background (snapshot id is reachable inside it) and tracks id -> path in
// the process-local mount registry.
func (s *Service) Mount(ctx context.Context, id, path string) error {
	if !ValidID(id) {
		return &errs.InvalidSnapshotIDError{Value: id}
	}
	if s.mounts.isMounted(id) {
		return fmt.Errorf("snapshot: %s is already mounted", id)
	}
	args := s.args(engine.MountArgs(path))
	go func() {
		_, _ = s.adapter.Run(context.Background(), args, s.handle.BackendEnv(), nil)
	}()
	s.mounts.add(id, path)
	return nil
}

// Unmount unmounts a previously mounted snapshot.
func (s *Service) Unmount(ctx context.Context, id string) error {
	path, ok := s.mounts.pathOf(id)
	if !ok {
		return fmt.Errorf("snapshot: %s is not mounted", id)
	}
	if err := platformUnmount(ctx, path); err != nil {
		return err
	}
	s.mounts.remove(id)
	return nil
}

// SearchIn searches within a single snapshot. kind is not used: matching
// is by the engine's find pattern only.
func (s *Service) SearchIn(ctx context.Context, id, pattern string, kind SearchKind) ([]SearchResult, error) {
	if !ValidID(id) {
		return nil, &errs.InvalidSnapshotIDError{Value: id}
	}
	return s.find(ctx, pattern, id)
}

// SearchAcross searches every snapshot in the repository. kind, host and
// tags are not used: matching is by the engine's find pattern only, with
// no host or tag filter.
func (s *Service) SearchAcross(ctx context.Context, pattern string, kind SearchKind, host string, tags []string) ([]SearchResult, error) {
	return s.find(ctx, pattern, "")
}

type findMatch struct {
	SnapshotID string   `json:"snapshot"`
	Matches    []string `json:"matches"`
}

func (s *Service) find(ctx context.Context, pattern, snapshotID string) ([]SearchResult, error) {
	out, err := s.adapter.Output(ctx, s.args(engine.FindArgs(pattern, snapshotID)), s.handle.BackendEnv())
	if err != nil {
		return nil, err
	}
	var groups []findMatch
	if err := json.Unmarshal(out, &groups); err != nil {
		return nil, &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: fmt.Sprintf("parse find: %v", err)}
	}
	var results []SearchResult
	for _, g := range groups {
		for _, m := range g.Matches {
			results = append(results, SearchResult{SnapshotID: g.SnapshotID, Path: m})
		}
	}
	return results, nil
}

type diffChange struct {
	MessageType string `json:"message_type"`
	Path        string `json:"path"`
	Modifier    string `json:"modifier"`
}

type diffStats struct {
	MessageType  string `json:"message_type"`
	SourceSnapshot string `json:"source_snapshot"`
	TargetSnapshot string `json:"target_snapshot"`
	Added struct {
		Bytes int64 `json:"bytes"`
	} `json:"added"`
	Removed struct {
		Bytes int64 `json:"bytes"`
	} `json:"removed"`
}

// Diff parses the engine's diff output into added/removed/modified/
// unchanged sets (spec.md §4.7). Each "change" event carries a Modifier of
// "+" (added), "-" (removed), "M" (modified), or "U" (unchanged).
func (s *Service) Diff(ctx context.Context, idA, idB string, includeMetadata bool) (*DiffResult, error) {
	if !ValidID(idA) || !ValidID(idB) {
		return nil, &errs.InvalidSnapshotIDError{Value: idA + ".." + idB}
	}
	result := &DiffResult{}
	_, err := s.adapter.Run(ctx, s.args(engine.DiffArgs(idA, idB)), s.handle.BackendEnv(), func(e engine.Event) error {
		if e.MessageType != "change" {
			if e.MessageType == "statistics" && includeMetadata {
				var stats diffStats
				if jsonErr := json.Unmarshal([]byte(e.Raw), &stats); jsonErr == nil {
					result.SizeDelta = stats.Added.Bytes - stats.Removed.Bytes
				}
			}
			return nil
		}
		var change diffChange
		if err := json.Unmarshal([]byte(e.Raw), &change); err != nil {
			return nil
		}
		switch change.Modifier {
		case "+":
			result.Added = append(result.Added, change.Path)
		case "-":
			result.Removed = append(result.Removed, change.Path)
		case "M":
			result.Modified = append(result.Modified, change.Path)
		case "U":
			result.Unchanged = append(result.Unchanged, change.Path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type statsOutput struct {
	TotalSize      uint64 `json:"total_size"`
	TotalFileCount uint64 `json:"total_file_count"`
}

// Stats returns the restore-size statistics for a single snapshot (total
// bytes and file count it would write), used by the restore orchestrator's
// free-space preflight check (spec.md §4.9).
func (s *Service) Stats(ctx context.Context, id string) (totalSize, fileCount uint64, err error) {
	if !ValidID(id) {
		return 0, 0, &errs.InvalidSnapshotIDError{Value: id}
	}
	out, err := s.adapter.Output(ctx, s.args(engine.SnapshotStatsArgs(id)), s.handle.BackendEnv())
	if err != nil {
		return 0, 0, err
	}
	var stats statsOutput
	if err := json.Unmarshal(out, &stats); err != nil {
		return 0, 0, &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: fmt.Sprintf("parse stats: %v", err)}
	}
	return stats.TotalSize, stats.TotalFileCount, nil
}

// Forget forgets a single snapshot, refusing to do so while it is mounted
// (spec.md §4.7).
func (s *Service) Forget(ctx context.Context, id string) error {
	if !ValidID(id) {
		return &errs.InvalidSnapshotIDError{Value: id}
	}
	if s.mounts.isMounted(id) {
		return fmt.Errorf("snapshot: cannot forget %s while it is mounted", id)
	}
	_, err := s.adapter.Run(ctx, s.args(engine.ForgetSnapshotArgs(id, false)), s.handle.BackendEnv(), nil)
	if err == nil {
		s.cache.invalidate()
	}
	return err
}
