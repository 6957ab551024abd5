package model

import (
	"database/sql"
	"time"
)

// Photo mirrors the `photos` table. ObjectKey names the original in object
// storage; clients never receive the key directly, only presigned URLs.
// Latitude/Longitude feed the map view and are null when the upload carried
// no GPS data.
type Photo struct {
	ID        uint64          // photos.id
	AlbumID   uint64          // photos.album_id
	UserID    uint64          // photos.user_id (uploader)
	ObjectKey string          // photos.object_key
	Caption   string          // photos.caption
	TakenAt   sql.NullTime    // photos.taken_at (from EXIF, nullable)
	Latitude  sql.NullFloat64 // photos.latitude
	Longitude sql.NullFloat64 // photos.longitude
	CreatedAt time.Time       // photos.created_at
}
