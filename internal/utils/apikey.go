package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// APIKeyMarker is the fixed leading marker of every raw API key. It makes
// keys recognizable in logs and Authorization headers without decoding, and
// lets the session resolver distinguish a key from a bearer access token.
const APIKeyMarker = "lbx_"

// apiKeyPrefixLen is how many characters after the marker are stored in
// clear as the lookup prefix. Eight hex chars narrow a lookup to a handful
// of candidate rows while revealing only 32 bits of a 160-bit secret.
const apiKeyPrefixLen = 8

// NewAPIKey returns a fresh raw key ("lbx_" + 40 hex chars) together with
// its non-secret lookup prefix. The caller stores only the prefix and a
// bcrypt hash of the full raw key; the raw key is shown to the user exactly
// once.
func NewAPIKey() (raw, prefix string, err error) {
	body, err := RandomHex(20)
	if err != nil {
		return "", "", err
	}
	return APIKeyMarker + body, body[:apiKeyPrefixLen], nil
}

// IsAPIKey reports whether a credential string carries the API key marker.
func IsAPIKey(raw string) bool {
	return strings.HasPrefix(raw, APIKeyMarker)
}

// APIKeyPrefix extracts the lookup prefix from a raw key. The second return
// is false when the value is not a well-formed key.
func APIKeyPrefix(raw string) (string, bool) {
	if !IsAPIKey(raw) {
		return "", false
	}
	body := strings.TrimPrefix(raw, APIKeyMarker)
	if len(body) < apiKeyPrefixLen {
		return "", false
	}
	return body[:apiKeyPrefixLen], true
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
