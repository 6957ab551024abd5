package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mkarlsen/lightbox/internal/model"
)

// MembershipRepo persists explicit (user, album) role grants. The original
// owner is recorded on the album row, not here; ownership rules are
// enforced by the role resolver, this layer only stores rows.
type MembershipRepo struct{ DB *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{DB: db} }

// GetRole returns the explicit role of a user on an album, or ErrNotFound.
func (r *MembershipRepo) GetRole(ctx context.Context, albumID, userID uint64) (string, error) {
	var role string
	err := r.DB.QueryRowContext(ctx,
		"SELECT role FROM album_members WHERE album_id=? AND user_id=? LIMIT 1",
		albumID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return role, err
}

// Upsert creates or replaces a membership row.
func (r *MembershipRepo) Upsert(ctx context.Context, albumID, userID uint64, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO album_members (album_id, user_id, role) VALUES (?,?,?) ON DUPLICATE KEY UPDATE role=VALUES(role)",
		albumID, userID, role)
	return err
}

// Delete removes a membership row.
func (r *MembershipRepo) Delete(ctx context.Context, albumID, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM album_members WHERE album_id=? AND user_id=?", albumID, userID)
	return err
}

// List returns all explicit members of an album.
func (r *MembershipRepo) List(ctx context.Context, albumID uint64) ([]model.Membership, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT album_id, user_id, role, created_at FROM album_members WHERE album_id=? ORDER BY created_at",
		albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.AlbumID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
