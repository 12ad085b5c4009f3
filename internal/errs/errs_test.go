package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &ConfigurationError{Op: "save", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save")
	assert.Contains(t, err.Error(), "disk full")
}

func TestRepositoryError_Retryable(t *testing.T) {
	tests := []struct {
		kind      RepositoryErrorKind
		retryable bool
	}{
		{RepoLocked, true},
		{RepoEngineError, true},
		{RepoNotInitialized, false},
		{RepoNotFound, false},
		{RepoBadPassword, false},
	}

	for _, tt := range tests {
		err := &RepositoryError{Kind: tt.kind}
		assert.Equal(t, tt.retryable, err.Retryable(), "kind=%s", tt.kind)
	}
}

func TestRepositoryNotFoundError_Message(t *testing.T) {
	err := &RepositoryNotFoundError{Name: "demo"}
	assert.Equal(t, "repository not found: demo", err.Error())
}

func TestRestoreError_UnwrapsCause(t *testing.T) {
	cause := errors.New("engine exited 1")
	err := &RestoreError{Kind: RestoreEngine, Detail: "restore", Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestAs_DistinguishesKinds(t *testing.T) {
	var err error = &CredentialError{Kind: CredentialLockedOut}

	var ce *CredentialError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, CredentialLockedOut, ce.Kind)
}
