package utils

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKeyShape(t *testing.T) {
	raw, prefix, err := NewAPIKey()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(raw, APIKeyMarker))
	body := strings.TrimPrefix(raw, APIKeyMarker)
	assert.Len(t, body, 40)
	_, err = hex.DecodeString(body)
	assert.NoError(t, err)

	assert.Len(t, prefix, 8)
	assert.Equal(t, body[:8], prefix)
}

func TestNewAPIKeyUnique(t *testing.T) {
	a, _, err := NewAPIKey()
	require.NoError(t, err)
	b, _, err := NewAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIsAPIKey(t *testing.T) {
	raw, _, err := NewAPIKey()
	require.NoError(t, err)

	assert.True(t, IsAPIKey(raw))
	assert.False(t, IsAPIKey("eyJhbGciOiJIUzI1NiJ9.x.y"))
	assert.False(t, IsAPIKey(""))
}

func TestAPIKeyPrefix(t *testing.T) {
	raw, prefix, err := NewAPIKey()
	require.NoError(t, err)

	got, ok := APIKeyPrefix(raw)
	require.True(t, ok)
	assert.Equal(t, prefix, got)

	_, ok = APIKeyPrefix("lbx_ab")
	assert.False(t, ok)
	_, ok = APIKeyPrefix("bearer-token")
	assert.False(t, ok)
}

func TestRandomHex(t *testing.T) {
	s, err := RandomHex(16)
	require.NoError(t, err)
	assert.Len(t, s, 32)
	_, err = hex.DecodeString(s)
	assert.NoError(t, err)
}
