package model

import "time"

// RefreshSession is the persisted proof of a live refresh session, one row
// per outstanding refresh token. ID is the session id embedded in the token
// itself; SecretHash is the bcrypt hash of the token's random secret. A row
// is deleted and replaced under a fresh id on every successful rotation and
// deleted outright on logout, expiry or detected reuse.
type RefreshSession struct {
	ID         string    // refresh_sessions.id (uuid)
	UserID     uint64    // refresh_sessions.user_id
	SecretHash string    // refresh_sessions.secret_hash
	ExpiresAt  time.Time // refresh_sessions.expires_at (UTC)
	CreatedAt  time.Time // refresh_sessions.created_at
}
