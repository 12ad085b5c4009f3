package repository

import (
	"os"
	"sync"

	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/vault"
)

// PasswordSource resolves a repository's password by repository ID.
// *vault.Vault satisfies this.
type PasswordSource interface {
	GetRepositoryPassword(repositoryID string) (string, error)
}

// CredentialSource resolves a repository's per-backend credentials.
// *vault.Vault satisfies this.
type CredentialSource interface {
	GetBackendCredentials(repositoryID, backendType string) (vault.BackendCredentials, error)
}

// Handle is a resolved, ready-to-use repository: its backend, its
// credentials, and a lazily (re)computed engine environment (spec.md §4.5
// step 6).
type Handle struct {
	Name     string
	URI      ParsedURI
	ID       string
	backend  Backend

	mu          sync.RWMutex
	password    string
	credentials map[string]string
	env         map[string]string
	envStale    bool
}

// Password returns the resolved repository password.
func (h *Handle) Password() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.password
}

// SetCredentials rotates the backend credentials mid-session; the next
// BackendEnv call recomputes the environment rather than serving a stale
// cache (spec.md §4.5 step 6).
func (h *Handle) SetCredentials(creds map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.credentials = creds
	h.envStale = true
}

// SetPassword rotates the repository password mid-session.
func (h *Handle) SetPassword(password string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.password = password
	h.envStale = true
}

// RepositoryArg returns the argument the engine expects for `--repo`.
func (h *Handle) RepositoryArg() string {
	return h.backend.RepositoryArg(h.URI)
}

// BackendEnv returns the environment variables the engine needs for this
// repository's backend, recomputing lazily if credentials have rotated.
func (h *Handle) BackendEnv() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.env == nil || h.envStale {
		h.env = h.backend.Env(h.URI, h.credentials)
		h.env["RESTIC_PASSWORD"] = h.password
		h.envStale = false
	}
	// Return a copy so callers can't mutate the cache.
	out := make(map[string]string, len(h.env))
	for k, v := range h.env {
		out[k] = v
	}
	return out
}

// Factory builds Handles from repository locations, resolving passwords and
// backend credentials through the vault and environment (spec.md §4.5).
type Factory struct {
	registry    *Registry
	passwords   PasswordSource
	credentials CredentialSource
	getenv      func(string) string
}

// NewFactory constructs a Factory. passwords/credentials may be nil (e.g.
// before a vault is unlocked); resolution then falls through to the
// environment only.
func NewFactory(registry *Registry, passwords PasswordSource, credentials CredentialSource) *Factory {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Factory{registry: registry, passwords: passwords, credentials: credentials, getenv: os.Getenv}
}

// CreateOptions carries the explicit overrides create_repository accepts
// before falling back to the vault and environment.
type CreateOptions struct {
	Password           string
	BackendCredentials map[string]string
	RequirePassword    bool
}

// Create parses and validates location, looks up its backend, resolves a
// password and backend credentials, and returns a ready Handle (spec.md
// §4.5).
func (f *Factory) Create(name, location string, opts CreateOptions) (*Handle, error) {
	uri, err := ParseURI(location)
	if err != nil {
		return nil, &errs.RepositoryFactoryError{URI: location, Cause: err}
	}
	if err := uri.Validate(); err != nil {
		return nil, &errs.RepositoryFactoryError{URI: location, Cause: err}
	}

	ctor, ok := f.registry.Lookup(uri.Scheme)
	if !ok {
		return nil, &errs.RepositoryFactoryError{URI: location, Cause: &errs.UnsupportedSchemeError{Scheme: uri.Scheme}}
	}
	backend := ctor(uri)
	repoID := ID(location)

	password := opts.Password
	if password == "" && f.passwords != nil {
		if p, err := f.passwords.GetRepositoryPassword(repoID); err == nil {
			password = p
		}
	}
	if password == "" {
		password = f.getenv("TIMELOCKER_PASSWORD")
	}
	if password == "" {
		password = f.getenv("RESTIC_PASSWORD")
	}
	if password == "" && opts.RequirePassword {
		return nil, &errs.RepositoryFactoryError{URI: location, Cause: errs.ErrPasswordRequired}
	}

	creds := opts.BackendCredentials
	if creds == nil && f.credentials != nil {
		if c, err := f.credentials.GetBackendCredentials(repoID, backend.Type()); err == nil {
			creds = map[string]string(c)
		}
	}
	if creds == nil {
		creds = map[string]string{}
	}

	return &Handle{
		Name:        name,
		URI:         uri,
		ID:          repoID,
		backend:     backend,
		password:    password,
		credentials: creds,
	}, nil
}
