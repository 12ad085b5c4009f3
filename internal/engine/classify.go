package engine

import (
	"strings"

	"github.com/auriora/timelocker/internal/errs"
)

// Classify maps the engine's stderr text to a RepositoryError kind by
// substring matching, exactly as spec.md §4.4 specifies.
func Classify(stderr string) *errs.RepositoryError {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "repository does not exist"):
		return &errs.RepositoryError{Kind: errs.RepoNotInitialized, Detail: strings.TrimSpace(stderr)}
	case strings.Contains(lower, "unable to open config file"):
		return &errs.RepositoryError{Kind: errs.RepoNotFound, Detail: strings.TrimSpace(stderr)}
	case strings.Contains(lower, "wrong password"):
		return &errs.RepositoryError{Kind: errs.RepoBadPassword, Detail: strings.TrimSpace(stderr)}
	case strings.Contains(lower, "repository is already locked") || strings.Contains(lower, "repository is locked"):
		return &errs.RepositoryError{Kind: errs.RepoLocked, Detail: strings.TrimSpace(stderr)}
	default:
		return &errs.RepositoryError{Kind: errs.RepoEngineError, Detail: strings.TrimSpace(stderr)}
	}
}
