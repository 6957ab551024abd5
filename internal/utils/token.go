package utils // package utils provides token issuing, hashing and key generation helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrInvalidToken is the single failure returned by every Parse* function.
// Signature failure, expiry and missing claims are deliberately
// indistinguishable so a caller can never leak which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Secrets carries the three independent signing secrets, one per token kind.
// Keeping them separate means an access token can never be replayed as a
// refresh or guest token and vice versa.
type Secrets struct {
	Access  string
	Refresh string
	Guest   string
}

// AccessToken is a signed, short-lived JWT proving recent authentication.
// The Token field contains the serialized JWT; Exp its UTC expiration time.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a long-lived token used to mint new access tokens. It
// embeds the id of the refresh session it belongs to, plus a random secret
// whose bcrypt hash is what the database stores. The serialized JWT is what
// travels in the cookie.
type RefreshToken struct {
	Token  string    // serialized JWT set on the refresh cookie
	Secret string    // random per-issue secret, hashed at rest
	Exp    time.Time // UTC expiration time
}

// GuestToken grants viewer access to a fixed set of albums without a user
// account. It is stateless: no database record backs it, trust is delegated
// entirely to the signature.
type GuestToken struct {
	Token string
	Exp   time.Time
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID uint64
}

// RefreshClaims are the verified contents of a refresh token. SessionID
// correlates the token with its RefreshSession row; Secret is compared
// against the stored hash during rotation.
type RefreshClaims struct {
	UserID    uint64
	SessionID string
	Secret    string
}

// GuestClaims are the verified contents of a guest token.
type GuestClaims struct {
	AlbumIDs []uint64
}

// NewAccessToken builds and signs an HS256 JWT for a user. The JWT carries
// the standard sub, exp and iat claims.
func NewAccessToken(secret string, userID uint64, ttl time.Duration) (AccessToken, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken signs a refresh JWT carrying the session id and a fresh
// random secret. The caller persists HashSecret(Secret); only the signed
// token ever reaches the client.
func NewRefreshToken(secret string, userID uint64, sessionID string, ttl time.Duration) (RefreshToken, error) {
	raw, err := RandomHex(32)
	if err != nil {
		return RefreshToken{}, err
	}
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"sid": sessionID,
		"sec": raw,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Secret: raw, Exp: exp}, nil
}

// NewGuestToken signs a guest JWT scoped to the given album ids.
func NewGuestToken(secret string, albumIDs []uint64, ttl time.Duration) (GuestToken, error) {
	exp := time.Now().UTC().Add(ttl)
	ids := make([]interface{}, 0, len(albumIDs))
	for _, id := range albumIDs {
		ids = append(ids, id)
	}
	claims := jwt.MapClaims{
		"albums": ids,
		"exp":    exp.Unix(),
		"iat":    time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return GuestToken{}, err
	}
	return GuestToken{Token: signed, Exp: exp}, nil
}

// ParseAccess verifies an access token and returns its claims.
func ParseAccess(secret, raw string) (AccessClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	uid, ok := claimUint64(claims, "sub")
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}
	return AccessClaims{UserID: uid}, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func ParseRefresh(secret, raw string) (RefreshClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return RefreshClaims{}, ErrInvalidToken
	}
	uid, ok := claimUint64(claims, "sub")
	if !ok {
		return RefreshClaims{}, ErrInvalidToken
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return RefreshClaims{}, ErrInvalidToken
	}
	sec, ok := claims["sec"].(string)
	if !ok || sec == "" {
		return RefreshClaims{}, ErrInvalidToken
	}
	return RefreshClaims{UserID: uid, SessionID: sid, Secret: sec}, nil
}

// ParseGuest verifies a guest token and returns the album ids it grants.
func ParseGuest(secret, raw string) (GuestClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return GuestClaims{}, ErrInvalidToken
	}
	list, ok := claims["albums"].([]interface{})
	if !ok {
		return GuestClaims{}, ErrInvalidToken
	}
	out := GuestClaims{AlbumIDs: make([]uint64, 0, len(list))}
	for _, v := range list {
		f, ok := v.(float64)
		if !ok || f < 0 {
			return GuestClaims{}, ErrInvalidToken
		}
		out.AlbumIDs = append(out.AlbumIDs, uint64(f))
	}
	return out, nil
}

// parseHS256 parses and validates a token, pinning the signing method to
// HMAC. jwt.Parse rejects expired tokens; requiring the exp claim also
// rejects tokens that omit it, so nothing unbounded ever verifies.
func parseHS256(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// claimUint64 extracts a numeric claim. JSON numbers decode as float64.
func claimUint64(claims jwt.MapClaims, key string) (uint64, bool) {
	f, ok := claims[key].(float64)
	if !ok || f <= 0 {
		return 0, false
	}
	return uint64(f), true
}
