package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mkarlsen/lightbox/internal/model"
)

// SessionRepo persists refresh sessions. Every write is a single-row atomic
// operation: rotation is a delete of the old row followed by an insert of a
// new one, so no partial record is ever visible and a concurrent rotation
// race is decided by whose delete lands first.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a refresh session row.
func (r *SessionRepo) Create(ctx context.Context, s model.RefreshSession) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_sessions (id, user_id, secret_hash, expires_at) VALUES (?,?,?,?)",
		s.ID, s.UserID, s.SecretHash, s.ExpiresAt)
	return err
}

// Get fetches a session by id. Returns ErrNotFound for rows that were
// already rotated or logged out elsewhere.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.RefreshSession, error) {
	var s model.RefreshSession
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, secret_hash, expires_at, created_at FROM refresh_sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.UserID, &s.SecretHash, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshSession{}, ErrNotFound
	}
	return s, err
}

// Delete removes a session row. The boolean reports whether this call
// actually deleted the row; a concurrent rotation's loser sees false and
// must treat the session as already rotated.
func (r *SessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAllForUser removes every session of a user (logout everywhere).
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE user_id=?", userID)
	return err
}

// DeleteExpired prunes sessions whose expiry has passed. Called from a
// periodic sweep; correctness never depends on it since Get callers check
// expiry themselves.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
