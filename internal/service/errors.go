// Package service implements the access-control core: refresh rotation,
// the API key registry, the rate limiter and the role resolver. Handlers
// translate the sentinel errors below into HTTP statuses; everything that
// boils down to "no usable credential" is ErrUnauthenticated so a caller can
// never tell which check failed.
package service

import "errors"

// ErrUnauthenticated covers missing, malformed, expired and revoked
// credentials alike. Surfaced as HTTP 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden means the caller is authenticated but lacks the required
// role. Surfaced as HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned for resources that do not exist or are invisible
// to the caller. Surfaced as HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrTheftDetected signals refresh-token reuse: a token bound to a live
// session carried a secret that does not match what was last issued. The
// session is revoked as a side effect. Externally this is indistinguishable
// from ErrUnauthenticated; the distinct value exists for logging and tests.
var ErrTheftDetected = errors.New("credential theft detected")

// ErrKeyLimitReached means the per-user ceiling on active API keys would be
// exceeded. Surfaced as HTTP 409.
var ErrKeyLimitReached = errors.New("active api key limit reached")
