package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/middleware"
	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// AlbumHandler exposes album CRUD and membership management. Every
// authorization decision routes through the role resolver; handlers only
// translate its answers to HTTP.
type AlbumHandler struct {
	Albums *repository.AlbumRepo
	Roles  *service.RoleResolver
}

func NewAlbumHandler(albums *repository.AlbumRepo, roles *service.RoleResolver) *AlbumHandler {
	return &AlbumHandler{Albums: albums, Roles: roles}
}

type albumReq struct {
	Title    string `json:"title"`
	IsPublic bool   `json:"is_public"`
}

type albumPart struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Title     string    `json:"title"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

func toAlbumPart(a model.Album) albumPart {
	return albumPart{ID: a.ID, OwnerID: a.OwnerID, Title: a.Title, IsPublic: a.IsPublic, CreatedAt: a.CreatedAt}
}

// effectiveRole combines the user identity's resolved role with whatever a
// guest cookie grants; the stronger of the two wins.
func (h *AlbumHandler) effectiveRole(ctx context.Context, ident middleware.Identity, albumID uint64) (service.Role, error) {
	role, err := h.Roles.RoleOf(ctx, ident.UserID, albumID)
	if err != nil {
		return service.RoleNone, err
	}
	if g := service.GuestRole(ident.GuestAlbums, albumID); g > role {
		role = g
	}
	return role, nil
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// Create makes a new album; the caller becomes its immutable original owner.
func (h *AlbumHandler) Create(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	var req albumReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	code, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create album failed"})
	}
	id, err := h.Albums.Create(ctx, ident.UserID, strings.TrimSpace(req.Title), req.IsPublic, code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create album failed"})
	}
	album, err := h.Albums.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create album failed"})
	}
	return c.JSON(http.StatusCreated, toAlbumPart(album))
}

// Get returns one album to anyone holding at least viewer on it.
func (h *AlbumHandler) Get(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.effectiveRole(ctx, ident, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleViewer) {
		// Hide existence of private albums from outsiders.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
	}
	album, err := h.Albums.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := echo.Map{"album": toAlbumPart(album), "role": role.String()}
	if service.HasRole(role, service.RoleOwner) {
		resp["invite_code"] = album.InviteCode
	}
	return c.JSON(http.StatusOK, resp)
}

// ListMine returns the albums the caller owns or is a member of.
func (h *AlbumHandler) ListMine(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	albums, err := h.Albums.ListForUser(ctx, ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]albumPart, 0, len(albums))
	for _, a := range albums {
		out = append(out, toAlbumPart(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"albums": out})
}

// Update changes title/visibility; requires editor.
func (h *AlbumHandler) Update(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}
	var req albumReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.effectiveRole(ctx, ident, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleEditor) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Albums.Update(ctx, id, strings.TrimSpace(req.Title), req.IsPublic); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegenerateInvite replaces the album's invite code; requires owner.
func (h *AlbumHandler) RegenerateInvite(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.effectiveRole(ctx, ident, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleOwner) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	code, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "regenerate failed"})
	}
	if err := h.Albums.SetInviteCode(ctx, id, code); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "regenerate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"invite_code": code})
}

// ----- membership -----

type memberReq struct {
	Role string `json:"role"`
}

type memberPart struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

// ListMembers returns explicit members; requires viewer.
func (h *AlbumHandler) ListMembers(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.effectiveRole(ctx, ident, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !service.HasRole(role, service.RoleViewer) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
	}
	members, err := h.Roles.Members(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]memberPart, 0, len(members))
	for _, m := range members {
		out = append(out, memberPart{UserID: m.UserID, Role: m.Role})
	}
	return c.JSON(http.StatusOK, echo.Map{"members": out})
}

// SetMember grants or changes a member's role. The resolver enforces the
// owner-immutability and joint-owner rules.
func (h *AlbumHandler) SetMember(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	albumID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}
	targetID, ok := pathID(c, "userID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req memberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := service.ParseRole(req.Role)
	if role == service.RoleNone {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be viewer, editor or owner"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Roles.SetMemberRole(ctx, ident.UserID, albumID, targetID, role); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
}

// RemoveMember deletes a member's role row, under the same ownership rules.
func (h *AlbumHandler) RemoveMember(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	albumID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid album id"})
	}
	targetID, ok := pathID(c, "userID")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Roles.RemoveMember(ctx, ident.UserID, albumID, targetID); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "album not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
}
