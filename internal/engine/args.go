package engine

import "fmt"

// RetentionPolicy mirrors the engine's keep_* forget flags.
type RetentionPolicy struct {
	KeepDaily   int
	KeepWeekly  int
	KeepMonthly int
	KeepYearly  int
}

// BackupArgs builds the argv for a backup invocation (spec.md §4.8): paths,
// tags, excludes, and exclude-if-present filenames.
func BackupArgs(paths, tags, excludePatterns, excludeIfPresent []string) []string {
	args := []string{"backup", "--json"}
	for _, t := range tags {
		args = append(args, "--tag", t)
	}
	for _, e := range excludePatterns {
		args = append(args, "--exclude", e)
	}
	for _, e := range excludeIfPresent {
		args = append(args, "--exclude-if-present", e)
	}
	args = append(args, paths...)
	return args
}

// CheckArgs builds the argv for a repository integrity check, optionally
// including the heavy --read-data pass (spec.md §4.6).
func CheckArgs(readData bool) []string {
	args := []string{"check", "--json"}
	if readData {
		args = append(args, "--read-data")
	}
	return args
}

// InitArgs builds the argv to initialize a new repository.
func InitArgs() []string {
	return []string{"init", "--json"}
}

// StatsArgs builds the argv for repository statistics.
func StatsArgs() []string {
	return []string{"stats", "--json"}
}

// SnapshotStatsArgs builds the argv for a single snapshot's restore-size
// statistics, used by the restore orchestrator's free-space preflight
// check (spec.md §4.9).
func SnapshotStatsArgs(snapshotID string) []string {
	return []string{"stats", snapshotID, "--json", "--mode", "restore-size"}
}

// UnlockArgs builds the argv to clear stale repository locks (spec.md §5).
func UnlockArgs() []string {
	return []string{"unlock", "--json"}
}

// ForgetArgs builds the argv to apply a retention policy, optionally
// pruning freed storage in the same pass.
func ForgetArgs(policy RetentionPolicy, prune, dryRun bool) []string {
	args := []string{"forget", "--json",
		"--keep-daily", fmt.Sprintf("%d", policy.KeepDaily),
		"--keep-weekly", fmt.Sprintf("%d", policy.KeepWeekly),
		"--keep-monthly", fmt.Sprintf("%d", policy.KeepMonthly),
		"--keep-yearly", fmt.Sprintf("%d", policy.KeepYearly),
	}
	if prune {
		args = append(args, "--prune")
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	return args
}

// ForgetSnapshotArgs builds the argv to forget a single snapshot by ID.
func ForgetSnapshotArgs(snapshotID string, prune bool) []string {
	args := []string{"forget", "--json", snapshotID}
	if prune {
		args = append(args, "--prune")
	}
	return args
}

// PruneArgs builds the argv for a standalone prune pass.
func PruneArgs() []string {
	return []string{"prune", "--json"}
}

// SnapshotsArgs builds the argv to list snapshots, optionally filtered by
// tags, host, or path.
func SnapshotsArgs(tags []string, host string, paths []string) []string {
	args := []string{"snapshots", "--json", "--no-lock"}
	for _, t := range tags {
		args = append(args, "--tag", t)
	}
	if host != "" {
		args = append(args, "--host", host)
	}
	for _, p := range paths {
		args = append(args, "--path", p)
	}
	return args
}

// LsArgs builds the argv to list a snapshot's contents, optionally scoped
// to a path within it.
func LsArgs(snapshotID, path string) []string {
	args := []string{"ls", "--json", snapshotID}
	if path != "" {
		args = append(args, path)
	}
	return args
}

// RestoreArgs builds the argv to restore a snapshot to targetDir.
func RestoreArgs(snapshotID, targetDir string, includePaths, excludePaths []string) []string {
	args := []string{"restore", snapshotID, "--json", "--target", targetDir}
	for _, p := range includePaths {
		args = append(args, "--include", p)
	}
	for _, p := range excludePaths {
		args = append(args, "--exclude", p)
	}
	return args
}

// DiffArgs builds the argv to diff two snapshots.
func DiffArgs(idA, idB string) []string {
	return []string{"diff", "--json", idA, idB}
}

// FindArgs builds the argv for a content/name/path search within or across
// snapshots (spec.md §4.7's search_in/search_across).
func FindArgs(pattern string, snapshotID string) []string {
	args := []string{"find", "--json", pattern}
	if snapshotID != "" {
		args = append(args, "--snapshot", snapshotID)
	} else {
		args = append(args, "--all-snapshots")
	}
	return args
}

// MountArgs builds the argv to FUSE-mount a repository at mountpoint.
func MountArgs(mountpoint string) []string {
	return []string{"mount", mountpoint}
}
