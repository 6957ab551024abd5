package repository

import (
	"context"
	"database/sql"

	"github.com/mkarlsen/lightbox/internal/model"
)

// ActivityRepo appends to the activity log. Rows are written by the queue
// consumer and only ever read back for display, never mutated.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// Insert appends one entry. userID 0 is stored as NULL.
func (r *ActivityRepo) Insert(ctx context.Context, userID uint64, event, detail string) error {
	var uid sql.NullInt64
	if userID != 0 {
		uid = sql.NullInt64{Int64: int64(userID), Valid: true}
	}
	var det sql.NullString
	if detail != "" {
		det = sql.NullString{String: detail, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO activity_log (user_id, event, detail) VALUES (?,?,?)", uid, event, det)
	return err
}

// ListForUser returns a user's most recent entries.
func (r *ActivityRepo) ListForUser(ctx context.Context, userID uint64, limit int) ([]model.ActivityEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, event, detail, created_at FROM activity_log WHERE user_id=? ORDER BY id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
