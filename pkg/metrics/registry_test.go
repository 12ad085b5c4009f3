package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_DefaultsNamespace(t *testing.T) {
	r := NewRegistry("")
	assert.Equal(t, "timelocker", r.Namespace())
}

func TestRegistry_LazyInitialization(t *testing.T) {
	r := NewRegistry("timelocker_test_lazy")

	ops := r.Operations()
	require.NotNil(t, ops)
	assert.Same(t, ops, r.Operations(), "Operations() must return the same instance on repeat calls")

	vault := r.Vault()
	require.NotNil(t, vault)
	assert.Same(t, vault, r.Vault())

	retry := r.Retry()
	require.NotNil(t, retry)
	assert.Same(t, retry, r.Retry())
}

func TestDefaultRegistry_Singleton(t *testing.T) {
	a := DefaultRegistry()
	b := DefaultRegistry()
	assert.Same(t, a, b)
}
