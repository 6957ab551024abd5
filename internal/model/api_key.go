package model

import (
	"database/sql"
	"time"
)

// APIKey is a persisted long-lived credential. Only the bcrypt hash of the
// full raw key is stored, plus a short non-secret lookup prefix used to
// narrow candidates on verification. Revoked keys keep their row forever as
// an audit trail; RevokedAt null means active.
type APIKey struct {
	ID          string       // api_keys.id (uuid)
	UserID      uint64       // api_keys.user_id
	Name        string       // api_keys.name (display name)
	KeyPrefix   string       // api_keys.key_prefix
	KeyHash     string       // api_keys.key_hash
	MinuteLimit int          // api_keys.minute_limit
	DailyLimit  int          // api_keys.daily_limit
	LastUsedAt  sql.NullTime // api_keys.last_used_at
	RevokedAt   sql.NullTime // api_keys.revoked_at (null = active)
	CreatedAt   time.Time    // api_keys.created_at
}

// Active reports whether the key may still authenticate.
func (k *APIKey) Active() bool {
	return !k.RevokedAt.Valid
}
