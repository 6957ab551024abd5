package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mkarlsen/lightbox/internal/model"
)

type AlbumRepo struct{ DB *sql.DB }

func NewAlbumRepo(db *sql.DB) *AlbumRepo { return &AlbumRepo{DB: db} }

const albumColumns = "id,owner_id,title,is_public,invite_code,created_at,updated_at"

// Create inserts an album and returns its ID. The creating user becomes the
// immutable original owner.
func (r *AlbumRepo) Create(ctx context.Context, ownerID uint64, title string, isPublic bool, inviteCode string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO albums (owner_id, title, is_public, invite_code) VALUES (?,?,?,?)",
		ownerID, title, isPublic, inviteCode)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an album.
func (r *AlbumRepo) GetByID(ctx context.Context, id uint64) (model.Album, error) {
	return r.scanOne(ctx, "SELECT "+albumColumns+" FROM albums WHERE id=? LIMIT 1", id)
}

// GetByInviteCode fetches an album by its share code.
func (r *AlbumRepo) GetByInviteCode(ctx context.Context, code string) (model.Album, error) {
	return r.scanOne(ctx, "SELECT "+albumColumns+" FROM albums WHERE invite_code=? LIMIT 1", code)
}

// Update changes title and visibility.
func (r *AlbumRepo) Update(ctx context.Context, id uint64, title string, isPublic bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE albums SET title=?, is_public=? WHERE id=?", title, isPublic, id)
	return err
}

// SetInviteCode replaces the share code, invalidating previously shared
// links (outstanding guest tokens stay valid until they expire).
func (r *AlbumRepo) SetInviteCode(ctx context.Context, id uint64, code string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE albums SET invite_code=? WHERE id=?", code, id)
	return err
}

// ListForUser returns albums the user originally owns or is a member of.
func (r *AlbumRepo) ListForUser(ctx context.Context, userID uint64) ([]model.Album, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums
		 WHERE owner_id=? OR id IN (SELECT album_id FROM album_members WHERE user_id=?)
		 ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// ListPublic returns public albums, newest first.
func (r *AlbumRepo) ListPublic(ctx context.Context, limit int) ([]model.Album, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+albumColumns+" FROM albums WHERE is_public=1 ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlbums(rows)
}

func (r *AlbumRepo) scanOne(ctx context.Context, query string, arg interface{}) (model.Album, error) {
	var a model.Album
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.OwnerID, &a.Title, &a.IsPublic, &a.InviteCode, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Album{}, ErrNotFound
	}
	return a, err
}

func scanAlbums(rows *sql.Rows) ([]model.Album, error) {
	var out []model.Album
	for rows.Next() {
		var a model.Album
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Title, &a.IsPublic, &a.InviteCode, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
