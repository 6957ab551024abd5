package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mkarlsen/lightbox/internal/model"
)

type PhotoRepo struct{ DB *sql.DB }

func NewPhotoRepo(db *sql.DB) *PhotoRepo { return &PhotoRepo{DB: db} }

const photoColumns = "id,album_id,user_id,object_key,caption,taken_at,latitude,longitude,created_at"

// Create inserts a photo record and returns its ID.
func (r *PhotoRepo) Create(ctx context.Context, p model.Photo) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO photos (album_id, user_id, object_key, caption, taken_at, latitude, longitude) VALUES (?,?,?,?,?,?,?)",
		p.AlbumID, p.UserID, p.ObjectKey, p.Caption, p.TakenAt, p.Latitude, p.Longitude)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a photo.
func (r *PhotoRepo) GetByID(ctx context.Context, id uint64) (model.Photo, error) {
	var p model.Photo
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.AlbumID, &p.UserID, &p.ObjectKey, &p.Caption, &p.TakenAt, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Photo{}, ErrNotFound
	}
	return p, err
}

// ListByAlbum returns an album's photos, newest first.
func (r *PhotoRepo) ListByAlbum(ctx context.Context, albumID uint64) ([]model.Photo, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE album_id=? ORDER BY created_at DESC", albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPhotos(rows)
}

// ListGeotagged returns an album's photos that carry coordinates, feeding
// the map view.
func (r *PhotoRepo) ListGeotagged(ctx context.Context, albumID uint64) ([]model.Photo, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+photoColumns+" FROM photos WHERE album_id=? AND latitude IS NOT NULL AND longitude IS NOT NULL",
		albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPhotos(rows)
}

func scanPhotos(rows *sql.Rows) ([]model.Photo, error) {
	var out []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.AlbumID, &p.UserID, &p.ObjectKey, &p.Caption,
			&p.TakenAt, &p.Latitude, &p.Longitude, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
