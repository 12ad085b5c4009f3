package backup

import (
	"os"
	"path/filepath"

	"github.com/auriora/timelocker/internal/config"
)

// BuildFileSelection merges the include paths, include patterns, exclude
// patterns, and exclude_if_present filenames of every target descriptor
// into a single FileSelection (spec.md §4.8).
func BuildFileSelection(targets []config.BackupTargetDescriptor) FileSelection {
	var sel FileSelection
	seen := make(map[string]bool)
	for _, t := range targets {
		for _, p := range t.Paths {
			if !seen[p] {
				seen[p] = true
				sel.Paths = append(sel.Paths, p)
			}
		}
		sel.IncludePatterns = append(sel.IncludePatterns, t.IncludePatterns...)
		sel.ExcludePatterns = append(sel.ExcludePatterns, t.ExcludePatterns...)
		sel.ExcludeIfPresent = append(sel.ExcludeIfPresent, t.ExcludeFiles...)
	}
	return sel
}

// EstimateWalk walks sel's paths to estimate the file count and byte total
// a real backup would process, used by dry-run (spec.md §4.8). Paths that
// don't exist are skipped rather than failing the estimate.
func EstimateWalk(sel FileSelection) (fileCount uint64, totalBytes uint64) {
	for _, root := range sel.Paths {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			fileCount++
			totalBytes += uint64(info.Size())
			return nil
		})
	}
	return fileCount, totalBytes
}
