package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ParsedURI is a repository location broken into its scheme and the
// scheme-specific remainder the engine expects on its command line
// (spec.md §6.5).
type ParsedURI struct {
	Scheme string
	Host   string
	Path   string
	Raw    string
}

// ParseURI parses a repository location. An empty scheme (a bare
// filesystem path) is treated as "local" (spec.md §4.5 step 1).
func ParseURI(location string) (ParsedURI, error) {
	if location == "" {
		return ParsedURI{}, fmt.Errorf("repository: empty location")
	}

	idx := strings.Index(location, "://")
	if idx < 0 {
		return ParsedURI{Scheme: "local", Path: location, Raw: location}, nil
	}

	scheme := location[:idx]
	u, err := url.Parse(location)
	if err != nil {
		return ParsedURI{}, fmt.Errorf("repository: malformed URI %q: %w", location, err)
	}

	return ParsedURI{
		Scheme: scheme,
		Host:   u.Host,
		Path:   u.Path,
		Raw:    location,
	}, nil
}

// Validate enforces spec.md §4.5 step 2: file/local schemes need a
// non-empty path, remote schemes need a host component.
func (p ParsedURI) Validate() error {
	switch p.Scheme {
	case "local", "file":
		if p.Path == "" {
			return fmt.Errorf("repository: %s scheme requires a non-empty path", p.Scheme)
		}
	default:
		if p.Host == "" {
			return fmt.Errorf("repository: %s scheme requires a host component", p.Scheme)
		}
	}
	return nil
}

// ID derives the stable repository identifier used for credential keys and
// event correlation: hex(SHA-256(URI))[0:16] (spec.md §5).
func ID(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return hex.EncodeToString(sum[:])[:16]
}
