package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/theora/internal/credential"
)

func TestStore_RoundTrip(t *testing.T) {
	s := credential.NewStore(keyring.NewArrayKeyring(nil))

	require.NoError(t, s.Set(credential.KeyAnthropicAPIKey, "sk-test"))
	got, err := s.Get(credential.KeyAnthropicAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got)

	require.NoError(t, s.Delete(credential.KeyAnthropicAPIKey))
	_, err = s.Get(credential.KeyAnthropicAPIKey)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestStore_LookupMissing(t *testing.T) {
	s := credential.NewStore(keyring.NewArrayKeyring(nil))
	assert.Empty(t, s.Lookup(credential.KeyGeminiAPIKey))
	assert.NoError(t, s.Delete("never-set"))
}
