package vault

import (
	"encoding/json"
	"os"
	"time"

	"github.com/auriora/timelocker/internal/errs"
)

// BackendCredentials is an opaque string-to-string map (spec.md §3), e.g.
// for S3: access_key_id, secret_access_key, region, insecure_tls.
type BackendCredentials map[string]string

// RepositoryPassword is a single stored repository secret with access
// metadata (spec.md §3's RepositoryPassword entity).
type RepositoryPassword struct {
	Secret       string    `json:"secret"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
}

// vaultDocument is the plaintext JSON document encrypted at rest
// (spec.md §6.2's top-level keys: repositories, backends, repository_backends).
type vaultDocument struct {
	RepositoryPasswords         map[string]RepositoryPassword             `json:"repositories"`
	GlobalBackendCredentials    map[string]BackendCredentials             `json:"backends"`
	RepositoryBackendCredentials map[string]map[string]BackendCredentials `json:"repository_backends"`
}

func newEmptyDocument() *vaultDocument {
	return &vaultDocument{
		RepositoryPasswords:          map[string]RepositoryPassword{},
		GlobalBackendCredentials:     map[string]BackendCredentials{},
		RepositoryBackendCredentials: map[string]map[string]BackendCredentials{},
	}
}

func (v *Vault) readDocument(key []byte) (*vaultDocument, error) {
	raw, err := os.ReadFile(v.credsPath)
	if err != nil {
		return nil, err
	}
	plaintext, err := open(key, raw)
	if err != nil {
		return nil, err
	}
	doc := newEmptyDocument()
	if err := json.Unmarshal(plaintext, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (v *Vault) writeDocument(key []byte, doc *vaultDocument) error {
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	ciphertext, err := seal(key, plaintext)
	if err != nil {
		return err
	}

	tmp := v.credsPath + ".tmp"
	if err := os.WriteFile(tmp, ciphertext, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, v.credsPath)
}

// withDocument runs fn against the current decrypted document inside the
// vault's cross-process file lock (spec.md §4.3: "every mutating op
// acquires a reentrant file lock to serialise writers"), writing the result
// back if fn returns mutate=true.
func (v *Vault) withDocument(fn func(doc *vaultDocument) (mutate bool, err error)) error {
	v.mu.Lock()
	if !v.isUnlockedLocked() {
		v.mu.Unlock()
		return &errs.CredentialAccessError{Reason: "vault is locked"}
	}
	key := v.key
	v.mu.Unlock()

	if err := v.fileLock.Lock(); err != nil {
		return &errs.CredentialManagerError{Op: "lock", Cause: err}
	}
	defer v.fileLock.Unlock()

	doc, err := v.readDocument(key)
	if err != nil {
		doc = newEmptyDocument()
	}

	mutate, err := fn(doc)
	if err != nil {
		return err
	}
	if mutate {
		if err := v.writeDocument(key, doc); err != nil {
			return &errs.CredentialManagerError{Op: "write", Cause: err}
		}
	}
	return nil
}

// GetRepositoryPassword returns the stored password for repositoryID,
// bumping access_count and last_accessed atomically with the read
// (spec.md §3's RepositoryPassword invariant).
func (v *Vault) GetRepositoryPassword(repositoryID string) (string, error) {
	var secret string
	err := v.withDocument(func(doc *vaultDocument) (bool, error) {
		entry, ok := doc.RepositoryPasswords[repositoryID]
		if !ok {
			return false, &errs.CredentialError{Kind: errs.CredentialNotFound}
		}
		entry.AccessCount++
		entry.LastAccessed = timeNow()
		doc.RepositoryPasswords[repositoryID] = entry
		secret = entry.Secret
		return true, nil
	})
	if err != nil {
		v.audit.append("get_repository_password", repositoryID, false, "")
		return "", err
	}
	v.audit.append("get_repository_password", repositoryID, true, "")
	v.metrics.AccessTotal.WithLabelValues("repository_password", "read").Inc()
	return secret, nil
}

// SetRepositoryPassword stores or replaces the password for repositoryID.
func (v *Vault) SetRepositoryPassword(repositoryID, password string) error {
	err := v.withDocument(func(doc *vaultDocument) (bool, error) {
		existing, had := doc.RepositoryPasswords[repositoryID]
		entry := RepositoryPassword{
			Secret:    password,
			CreatedAt: timeNow(),
		}
		if had {
			entry.CreatedAt = existing.CreatedAt
		}
		doc.RepositoryPasswords[repositoryID] = entry
		return true, nil
	})
	v.audit.append("set_repository_password", repositoryID, err == nil, "")
	if err == nil {
		v.metrics.AccessTotal.WithLabelValues("repository_password", "write").Inc()
	}
	return err
}

// GetBackendCredentials returns the per-(repository, backend type)
// credential set.
func (v *Vault) GetBackendCredentials(repositoryID, backendType string) (BackendCredentials, error) {
	var creds BackendCredentials
	err := v.withDocument(func(doc *vaultDocument) (bool, error) {
		byBackend, ok := doc.RepositoryBackendCredentials[repositoryID]
		if !ok {
			return false, &errs.CredentialError{Kind: errs.CredentialNotFound}
		}
		found, ok := byBackend[backendType]
		if !ok {
			return false, &errs.CredentialError{Kind: errs.CredentialNotFound}
		}
		creds = found
		return false, nil
	})
	if err != nil {
		v.audit.append("get_backend_credentials", repositoryID+"/"+backendType, false, "")
		return nil, err
	}
	v.audit.append("get_backend_credentials", repositoryID+"/"+backendType, true, "")
	v.metrics.AccessTotal.WithLabelValues("backend_credentials", "read").Inc()
	return creds, nil
}

// SetBackendCredentials stores credentials for (repositoryID, backendType).
func (v *Vault) SetBackendCredentials(repositoryID, backendType string, creds BackendCredentials) error {
	err := v.withDocument(func(doc *vaultDocument) (bool, error) {
		if doc.RepositoryBackendCredentials[repositoryID] == nil {
			doc.RepositoryBackendCredentials[repositoryID] = map[string]BackendCredentials{}
		}
		doc.RepositoryBackendCredentials[repositoryID][backendType] = creds
		return true, nil
	})
	v.audit.append("set_backend_credentials", repositoryID+"/"+backendType, err == nil, "")
	if err == nil {
		v.metrics.AccessTotal.WithLabelValues("backend_credentials", "write").Inc()
	}
	return err
}

// GetGlobalBackendCredentials returns the legacy, backend-type-only
// credential set retained for backward compatibility (spec.md §4.3's
// "Global backend credentials (legacy)").
func (v *Vault) GetGlobalBackendCredentials(backendType string) (BackendCredentials, error) {
	var creds BackendCredentials
	err := v.withDocument(func(doc *vaultDocument) (bool, error) {
		found, ok := doc.GlobalBackendCredentials[backendType]
		if !ok {
			return false, &errs.CredentialError{Kind: errs.CredentialNotFound}
		}
		creds = found
		return false, nil
	})
	if err != nil {
		v.audit.append("get_global_backend_credentials", backendType, false, "")
		return nil, err
	}
	v.audit.append("get_global_backend_credentials", backendType, true, "")
	v.metrics.AccessTotal.WithLabelValues("global_backend_credentials", "read").Inc()
	return creds, nil
}

// SetGlobalBackendCredentials stores the legacy backend-type-only credential set.
func (v *Vault) SetGlobalBackendCredentials(backendType string, creds BackendCredentials) error {
	err := v.withDocument(func(doc *vaultDocument) (bool, error) {
		doc.GlobalBackendCredentials[backendType] = creds
		return true, nil
	})
	v.audit.append("set_global_backend_credentials", backendType, err == nil, "")
	if err == nil {
		v.metrics.AccessTotal.WithLabelValues("global_backend_credentials", "write").Inc()
	}
	return err
}

// timeNow is a seam for tests; production always uses time.Now.
var timeNow = func() time.Time { return time.Now() }
