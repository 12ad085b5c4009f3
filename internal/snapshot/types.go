// Package snapshot implements the snapshot service (C7): listing, lookup,
// mounting, searching, and diffing snapshots within a single resolved
// repository handle.
package snapshot

import (
	"regexp"
	"time"
)

// idPattern is the snapshot ID validation regex spec.md §4.7 requires at
// the entry of every C7/C8/C9 call that takes one: any unique prefix of at
// least 4 hex characters.
var idPattern = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// ValidID reports whether id is a syntactically valid (possibly partial)
// snapshot ID.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// SearchKind names what a search matches against. SearchIn and
// SearchAcross accept it but do not act on it.
type SearchKind string

const (
	SearchByName    SearchKind = "name"
	SearchByContent SearchKind = "content"
	SearchByPath    SearchKind = "path"
)

// Snapshot is a parsed engine snapshot record.
type Snapshot struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Time     time.Time `json:"time"`
	Host     string    `json:"hostname"`
	Tags     []string  `json:"tags,omitempty"`
	Paths    []string  `json:"paths"`
	Parent   string    `json:"parent,omitempty"`
}

// Filter narrows list/search results (spec.md §4.7's filter semantics):
// tags are a disjunction within one filter and a conjunction across
// repeated filter applications (the caller controls that by composing
// filters); date bounds are inclusive; MaxResults is applied after
// sorting by timestamp descending.
type Filter struct {
	Tags       []string
	Host       string
	Paths      []string
	DateFrom   *time.Time
	DateTo     *time.Time
	MaxResults int
}

// Matches reports whether snap satisfies f.
func (f Filter) Matches(snap Snapshot) bool {
	if len(f.Tags) > 0 && !anyTagMatches(f.Tags, snap.Tags) {
		return false
	}
	if f.Host != "" && f.Host != snap.Host {
		return false
	}
	if len(f.Paths) > 0 && !anyPathMatches(f.Paths, snap.Paths) {
		return false
	}
	if f.DateFrom != nil && snap.Time.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && snap.Time.After(*f.DateTo) {
		return false
	}
	return true
}

func anyTagMatches(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

func anyPathMatches(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// DiffResult is the parsed engine diff output (spec.md §4.7).
type DiffResult struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Modified  []string `json:"modified"`
	Unchanged []string `json:"unchanged,omitempty"`
	SizeDelta int64    `json:"size_delta,omitempty"`
}

// SearchResult is one hit from search_in/search_across.
type SearchResult struct {
	SnapshotID string `json:"snapshot_id"`
	Path       string `json:"path"`
}
