// Package restore implements the restore orchestrator (C9): pre-flight
// checks, driving the engine's restore, and post-restore verification.
package restore

// ConflictResolution selects how an existing file under the restore target
// is handled (spec.md §4.9).
type ConflictResolution string

const (
	ConflictSkip      ConflictResolution = "skip"
	ConflictOverwrite ConflictResolution = "overwrite"
	ConflictKeepBoth  ConflictResolution = "keep_both"
	ConflictPrompt    ConflictResolution = "prompt"
)

// ProgressCallback is invoked with a 0..1 completion fraction as the engine
// reports restore progress. May be nil.
type ProgressCallback func(fraction float64)

// Options configures a single execute_restore call.
type Options struct {
	TargetPath             string
	IncludePaths           []string
	ExcludePaths           []string
	ConflictResolution     ConflictResolution
	VerifyAfterRestore     bool
	CreateTargetDirectory  bool
	PreservePermissions    bool
	DryRun                 bool
	ProgressCallback       ProgressCallback
}
