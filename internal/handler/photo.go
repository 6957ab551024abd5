package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/middleware"
	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/storage"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// urlTTL is how long presigned upload/download URLs stay valid.
const urlTTL = 15 * time.Minute

// PhotoHandler exposes photo metadata plus presigned object-store URLs.
// Image bytes never pass through this service.
type PhotoHandler struct {
	Photos *repository.PhotoRepo
	Albums *repository.AlbumRepo
	Roles  *service.RoleResolver
	Store  *storage.ObjectStore
}

func NewPhotoHandler(photos *repository.PhotoRepo, albums *repository.AlbumRepo, roles *service.RoleResolver, store *storage.ObjectStore) *PhotoHandler {
	return &PhotoHandler{Photos: photos, Albums: albums, Roles: roles, Store: store}
}

type createPhotoReq struct {
	Caption   string   `json:"caption"`
	TakenAt   *string  `json:"taken_at"` // RFC3339, from the EXIF pipeline
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type photoPart struct {
	ID        uint64   `json:"id"`
	AlbumID   uint64   `json:"album_id"`
	Caption   string   `json:"caption"`
	TakenAt   *string  `json:"taken_at,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func toPhotoPart(p model.Photo) photoPart {
	out := photoPart{ID: p.ID, AlbumID: p.AlbumID, Caption: p.Caption}
	if p.TakenAt.Valid {
		s := p.TakenAt.Time.UTC().Format(time.RFC3339)
		out.TakenAt = &s
	}
	if p.Latitude.Valid && p.Longitude.Valid {
		lat, lng := p.Latitude.Float64, p.Longitude.Float64
		out.Latitude, out.Longitude = &lat, &lng
	}
	return out
}

func (h *PhotoHandler) albumRole(ctx context.Context, c echo.Context, albumID uint64) (service.Role, error) {
	ident := middleware.CurrentIdentity(c)
	role, err := h.Roles.RoleOf(ctx, ident.UserID, albumID)
	if err != nil {
		return service.RoleNone, err
	}
	if g := service.GuestRole(ident.GuestAlbums, albumID); g > role {
		role = g
	}
	return role, nil
}

// Create registers a photo in an album and returns a presigned upload URL
// for the original; requires editor.
func (h *PhotoHandler) Create(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	albumID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}
	var req createPhotoReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.albumRole(ctx, c, albumID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleEditor) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	suffix, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create photo failed"})
	}
	photo := model.Photo{
		AlbumID:   albumID,
		UserID:    ident.UserID,
		ObjectKey: fmt.Sprintf("albums/%d/%s", albumID, suffix),
		Caption:   strings.TrimSpace(req.Caption),
	}
	if req.TakenAt != nil {
		if t, perr := time.Parse(time.RFC3339, *req.TakenAt); perr == nil {
			photo.TakenAt = sql.NullTime{Time: t.UTC(), Valid: true}
		}
	}
	if req.Latitude != nil && req.Longitude != nil {
		photo.Latitude = sql.NullFloat64{Float64: *req.Latitude, Valid: true}
		photo.Longitude = sql.NullFloat64{Float64: *req.Longitude, Valid: true}
	}

	id, err := h.Photos.Create(ctx, photo)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create photo failed"})
	}
	uploadURL, err := h.Store.UploadURL(ctx, photo.ObjectKey, urlTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign upload failed"})
	}
	photo.ID = id
	return c.JSON(http.StatusCreated, echo.Map{
		"photo":      toPhotoPart(photo),
		"upload_url": uploadURL,
	})
}

// ListByAlbum returns an album's photo metadata; requires viewer.
func (h *PhotoHandler) ListByAlbum(c echo.Context) error {
	albumID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.albumRole(ctx, c, albumID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleViewer) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
	}

	var photos []model.Photo
	if c.QueryParam("geotagged") == "true" {
		photos, err = h.Photos.ListGeotagged(ctx, albumID) // map view
	} else {
		photos, err = h.Photos.ListByAlbum(ctx, albumID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]photoPart, 0, len(photos))
	for _, p := range photos {
		out = append(out, toPhotoPart(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"photos": out})
}

// DownloadURL returns a presigned GET URL for one photo; requires viewer on
// the photo's album.
func (h *PhotoHandler) DownloadURL(c echo.Context) error {
	photoID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	photo, err := h.Photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	role, err := h.albumRole(ctx, c, photo.AlbumID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleViewer) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
	}
	url, err := h.Store.DownloadURL(ctx, photo.ObjectKey, urlTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sign download failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"download_url": url, "expires_in": int(urlTTL.Seconds())})
}
