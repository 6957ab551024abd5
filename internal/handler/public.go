package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/repository"
)

// PublicHandler serves the unauthenticated browse surface. Responses here
// are sanitized (no owner emails, no invite codes) and sit behind the
// response cache.
type PublicHandler struct {
	Albums *repository.AlbumRepo
}

func NewPublicHandler(albums *repository.AlbumRepo) *PublicHandler {
	return &PublicHandler{Albums: albums}
}

type publicAlbumPart struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ListPublicAlbums returns recent public albums.
func (h *PublicHandler) ListPublicAlbums(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	albums, err := h.Albums.ListPublic(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]publicAlbumPart, 0, len(albums))
	for _, a := range albums {
		out = append(out, publicAlbumPart{ID: a.ID, Title: a.Title, CreatedAt: a.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"albums": out})
}
