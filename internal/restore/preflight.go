package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/repository"
	"github.com/auriora/timelocker/internal/snapshot"
)

// availableBytesFn is a test seam over the platform-specific free-space
// probe (diskspace_unix.go / diskspace_windows.go).
var availableBytesFn = availableBytes

// preflightResult carries the warnings accumulated while checking that a
// restore can proceed, plus the snapshot's reported restore size (already
// used by runPreflight's own free-space check) and file count (used by the
// caller to post-verify the restore).
type preflightResult struct {
	Warnings       []string
	SnapshotBytes  uint64
	SnapshotFiles  uint64
}

// runPreflight executes the five-step chain spec.md §4.9 requires before
// the engine is invoked. It returns on the first hard failure; everything
// else downgrades to a warning collected in the result.
func runPreflight(ctx context.Context, snapSvc *snapshot.Service, repoSvc *repository.Service, snapshotID string, opts Options) (*preflightResult, error) {
	result := &preflightResult{}

	// 1. target_path is set; if it exists, it must be a directory.
	if opts.TargetPath == "" {
		return nil, &errs.RestoreError{Kind: errs.RestoreTarget, Detail: "target_path is required"}
	}
	info, statErr := os.Stat(opts.TargetPath)
	targetExists := statErr == nil
	if targetExists && !info.IsDir() {
		return nil, &errs.RestoreError{Kind: errs.RestoreTarget, Detail: fmt.Sprintf("%s exists and is not a directory", opts.TargetPath)}
	}

	// 2. Snapshot self-verification; failure downgrades to a warning.
	if _, err := repoSvc.Check(ctx); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot self-verification failed: %v", err))
	}

	// 3. Target directory creation, if requested.
	if !targetExists {
		if opts.CreateTargetDirectory {
			if err := os.MkdirAll(opts.TargetPath, 0o755); err != nil {
				return nil, &errs.RestoreError{Kind: errs.RestorePermission, Detail: "create target directory", Cause: &errs.RestorePermissionError{Path: opts.TargetPath, Cause: err}}
			}
		} else {
			return nil, &errs.RestoreError{Kind: errs.RestoreTarget, Detail: fmt.Sprintf("%s does not exist and create_target_directory is false", opts.TargetPath)}
		}
	}

	// 4. Available free space vs. the snapshot's reported total_size.
	totalSize, fileCount, statsErr := snapSvc.Stats(ctx, snapshotID)
	result.SnapshotBytes = totalSize
	result.SnapshotFiles = fileCount
	if statsErr != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not determine snapshot size: %v", statsErr))
	} else {
		available, err := availableBytesFn(opts.TargetPath)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not determine free space: %v", err))
		} else if available < totalSize {
			return nil, &errs.RestoreError{
				Kind:   errs.RestoreSpace,
				Detail: "insufficient free space",
				Cause:  &errs.InsufficientSpaceError{Required: int64(totalSize), Available: int64(available)},
			}
		}
	}

	// 5. Conflict scan: does the target already have files?
	if targetExists {
		conflicts, err := countEntries(opts.TargetPath)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not scan target for conflicts: %v", err))
		} else if conflicts > 0 {
			switch opts.ConflictResolution {
			case ConflictPrompt, "":
				result.Warnings = append(result.Warnings, fmt.Sprintf("%d existing entries under target path require resolution", conflicts))
			case ConflictSkip, ConflictOverwrite, ConflictKeepBoth:
				// No policy is applied: the engine is invoked without any
				// overwrite option, and for these policies the conflicts
				// are not reported as warnings.
			}
		}
	}

	return result, nil
}

func countEntries(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func countRegularFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}
