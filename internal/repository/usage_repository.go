package repository

import (
	"context"
	"database/sql"
	"time"
)

// UsageRepo maintains the fixed-window request counters behind the API rate
// limiter: one row per (key id, minute window). Rows are created lazily on
// the first request of a window and never deleted; the daily total is
// derived by summing the day's minute windows.
type UsageRepo struct{ DB *sql.DB }

func NewUsageRepo(db *sql.DB) *UsageRepo { return &UsageRepo{DB: db} }

// IncrementWindow atomically creates-or-increments the counter row for the
// given minute window and returns the post-increment count. The
// LAST_INSERT_ID(expr) form makes MySQL hand back the value written by this
// statement, so concurrent requests on the same key each observe their own
// count and no update is ever lost.
func (r *UsageRepo) IncrementWindow(ctx context.Context, keyID string, windowStart time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO api_key_usage (key_id, window_start, request_count)
		 VALUES (?,?,LAST_INSERT_ID(1))
		 ON DUPLICATE KEY UPDATE request_count = LAST_INSERT_ID(request_count + 1)`,
		keyID, windowStart.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SumSince returns the total requests recorded for a key in windows at or
// after the given instant. With the UTC midnight boundary it yields the
// day's running total, including the minute window just incremented.
func (r *UsageRepo) SumSince(ctx context.Context, keyID string, since time.Time) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		"SELECT SUM(request_count) FROM api_key_usage WHERE key_id=? AND window_start >= ?",
		keyID, since.UTC()).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
