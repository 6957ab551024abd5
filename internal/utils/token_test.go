package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecrets = Secrets{
	Access:  "access-secret-for-tests",
	Refresh: "refresh-secret-for-tests",
	Guest:   "guest-secret-for-tests",
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecrets.Access, 42, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccess(testSecrets.Access, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testSecrets.Access, 42, time.Minute)
	require.NoError(t, err)

	_, err = ParseAccess("some-other-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken(testSecrets.Access, 42, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccess(testSecrets.Access, tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenGarbage(t *testing.T) {
	_, err := ParseAccess(testSecrets.Access, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccess(testSecrets.Access, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tok, err := NewRefreshToken(testSecrets.Refresh, 7, "sess-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Secret)

	claims, err := ParseRefresh(testSecrets.Refresh, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, tok.Secret, claims.Secret)
}

func TestRefreshSecretIsFreshPerIssue(t *testing.T) {
	a, err := NewRefreshToken(testSecrets.Refresh, 7, "sess-1", time.Hour)
	require.NoError(t, err)
	b, err := NewRefreshToken(testSecrets.Refresh, 7, "sess-1", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.Secret, b.Secret)
}

// A token of one kind must never verify as another: every kind signs with
// its own secret.
func TestTokenKindSeparation(t *testing.T) {
	access, err := NewAccessToken(testSecrets.Access, 9, time.Hour)
	require.NoError(t, err)
	refresh, err := NewRefreshToken(testSecrets.Refresh, 9, "sess-9", time.Hour)
	require.NoError(t, err)
	guest, err := NewGuestToken(testSecrets.Guest, []uint64{1}, time.Hour)
	require.NoError(t, err)

	_, err = ParseRefresh(testSecrets.Refresh, access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseAccess(testSecrets.Access, refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseGuest(testSecrets.Guest, access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseAccess(testSecrets.Access, guest.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGuestTokenRoundTrip(t *testing.T) {
	tok, err := NewGuestToken(testSecrets.Guest, []uint64{3, 5, 8}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseGuest(testSecrets.Guest, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5, 8}, claims.AlbumIDs)
}

func TestGuestTokenEmptyScope(t *testing.T) {
	tok, err := NewGuestToken(testSecrets.Guest, nil, time.Hour)
	require.NoError(t, err)

	claims, err := ParseGuest(testSecrets.Guest, tok.Token)
	require.NoError(t, err)
	assert.Empty(t, claims.AlbumIDs)
}

// A signed token without an expiry never verifies.
func TestTokenWithoutExpiryRejected(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 42})
	signed, err := tok.SignedString([]byte(testSecrets.Access))
	require.NoError(t, err)

	_, err = ParseAccess(testSecrets.Access, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	tok, err := NewAccessToken(testSecrets.Access, 42, time.Hour)
	require.NoError(t, err)

	mutated := []byte(tok.Token)
	mutated[len(mutated)-1] ^= 0x01
	_, err = ParseAccess(testSecrets.Access, string(mutated))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
