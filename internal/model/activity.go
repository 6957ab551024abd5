package model

import (
	"database/sql"
	"time"
)

// ActivityEntry mirrors the `activity_log` table. Rows are written by the
// queue consumer, never updated or deleted. UserID is null for events that
// have no acting user (e.g. a rejected credential).
type ActivityEntry struct {
	ID        uint64         // activity_log.id
	UserID    sql.NullInt64  // activity_log.user_id
	Event     string         // activity_log.event (e.g. "auth.login")
	Detail    sql.NullString // activity_log.detail (free-form JSON)
	CreatedAt time.Time      // activity_log.created_at
}
