package model

import (
	"database/sql"
	"time"
)

// User represents an application user record as stored in the `users`
// table. PasswordHash is empty for accounts created through an external
// identity provider; ExternalID is empty for password accounts. Users are
// never hard-deleted by this service.
type User struct {
	ID           uint64         // users.id
	Email        string         // users.email (unique, lowercased)
	PasswordHash string         // users.password_hash ("" when external-only)
	ExternalID   sql.NullString // users.external_id (identity-provider subject)
	DisplayName  string         // users.display_name
	CreatedAt    time.Time      // users.created_at
	UpdatedAt    time.Time      // users.updated_at
}
