package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/config"
	"github.com/mkarlsen/lightbox/internal/middleware"
	"github.com/mkarlsen/lightbox/internal/queue"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// GuestHandler exchanges an album invite code for a guest cookie. The
// resulting token is stateless: it lists the album ids it grants viewer
// access to, and nothing about it is persisted.
type GuestHandler struct {
	Cfg    config.Config
	Albums *repository.AlbumRepo
}

func NewGuestHandler(cfg config.Config, albums *repository.AlbumRepo) *GuestHandler {
	return &GuestHandler{Cfg: cfg, Albums: albums}
}

type acceptInviteReq struct {
	Code string `json:"code"`
}

// guestAlbumCap bounds how many album grants one cookie can accumulate.
const guestAlbumCap = 32

// AcceptInvite validates an invite code and sets a guest cookie scoped to
// that album. Grants from a previously held guest cookie are merged in, so
// accepting a second invite does not drop the first album.
func (h *GuestHandler) AcceptInvite(c echo.Context) error {
	var req acceptInviteReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	album, err := h.Albums.GetByInviteCode(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid invite code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	ids := mergeAlbumIDs(middleware.CurrentIdentity(c).GuestAlbums, album.ID)
	tok, err := utils.NewGuestToken(h.Cfg.GuestSecret, ids, time.Duration(h.Cfg.GuestTTLDays)*24*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	middleware.SetGuestCookie(c, tok, h.Cfg.CookieSecure)
	_ = queue.PublishActivity(ctx, queue.ActivityEvent{Event: queue.EventGuestAccepted, Detail: album.Title})

	return c.JSON(http.StatusOK, echo.Map{
		"album_id": album.ID,
		"title":    album.Title,
		"expires":  tok.Exp,
	})
}

func mergeAlbumIDs(existing []uint64, id uint64) []uint64 {
	for _, e := range existing {
		if e == id {
			return existing
		}
	}
	out := append(append([]uint64{}, existing...), id)
	if len(out) > guestAlbumCap {
		out = out[len(out)-guestAlbumCap:]
	}
	return out
}
