package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mkarlsen/lightbox/internal/model"
)

// APIKeyRepo persists API keys. Keys are never physically removed:
// revocation sets revoked_at so the row remains as an audit trail.
type APIKeyRepo struct{ DB *sql.DB }

func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo { return &APIKeyRepo{DB: db} }

const apiKeyColumns = "id,user_id,name,key_prefix,key_hash,minute_limit,daily_limit,last_used_at,revoked_at,created_at"

// Create inserts a key record.
func (r *APIKeyRepo) Create(ctx context.Context, k model.APIKey) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO api_keys (id, user_id, name, key_prefix, key_hash, minute_limit, daily_limit) VALUES (?,?,?,?,?,?,?)",
		k.ID, k.UserID, k.Name, k.KeyPrefix, k.KeyHash, k.MinuteLimit, k.DailyLimit)
	return err
}

// GetByID fetches a key regardless of revocation state.
func (r *APIKeyRepo) GetByID(ctx context.Context, id string) (model.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+apiKeyColumns+" FROM api_keys WHERE id=? LIMIT 1", id)
	if err != nil {
		return model.APIKey{}, err
	}
	defer rows.Close()
	keys, err := scanKeys(rows)
	if err != nil {
		return model.APIKey{}, err
	}
	if len(keys) == 0 {
		return model.APIKey{}, ErrNotFound
	}
	return keys[0], nil
}

// FindActiveByPrefix returns all non-revoked keys sharing a lookup prefix.
// The prefix is short enough that collisions are rare, so the caller's
// hash-check loop stays bounded.
func (r *APIKeyRepo) FindActiveByPrefix(ctx context.Context, prefix string) ([]model.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+apiKeyColumns+" FROM api_keys WHERE key_prefix=? AND revoked_at IS NULL", prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKeys(rows)
}

// ListByUser returns all of a user's keys, active first, newest first.
func (r *APIKeyRepo) ListByUser(ctx context.Context, userID uint64) ([]model.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+apiKeyColumns+" FROM api_keys WHERE user_id=? ORDER BY revoked_at IS NOT NULL, created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKeys(rows)
}

// CountActive returns how many non-revoked keys a user holds. Checked
// against the per-user ceiling before generation.
func (r *APIKeyRepo) CountActive(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM api_keys WHERE user_id=? AND revoked_at IS NULL", userID).Scan(&n)
	return n, err
}

// Revoke stamps revoked_at on an owner's key. The ownership check lives in
// the WHERE clause so a key can only ever be revoked by its owner; the
// boolean reports whether a row changed.
func (r *APIKeyRepo) Revoke(ctx context.Context, id string, userID uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE api_keys SET revoked_at=UTC_TIMESTAMP() WHERE id=? AND user_id=? AND revoked_at IS NULL",
		id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TouchLastUsed records that a key just authenticated a request. Best
// effort bookkeeping; an unconditional overwrite keyed by id, safe to race.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at=? WHERE id=?", at.UTC(), id)
	return err
}

func scanKeys(rows *sql.Rows) ([]model.APIKey, error) {
	var out []model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.KeyHash,
			&k.MinuteLimit, &k.DailyLimit, &k.LastUsedAt, &k.RevokedAt, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
