package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/middleware"
	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/service"
)

// APIKeyHandler exposes key management. All routes sit behind
// RequireSession: an API key can never manage API keys.
type APIKeyHandler struct {
	Keys *service.APIKeyService
}

func NewAPIKeyHandler(keys *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{Keys: keys}
}

type createKeyReq struct {
	Name string `json:"name"`
}

type keyPart struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"key_prefix"`
	MinuteLimit int        `json:"minute_limit"`
	DailyLimit  int        `json:"daily_limit"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toKeyPart(k model.APIKey) keyPart {
	p := keyPart{
		ID:          k.ID,
		Name:        k.Name,
		KeyPrefix:   k.KeyPrefix,
		MinuteLimit: k.MinuteLimit,
		DailyLimit:  k.DailyLimit,
		CreatedAt:   k.CreatedAt,
	}
	if k.LastUsedAt.Valid {
		t := k.LastUsedAt.Time
		p.LastUsedAt = &t
	}
	if k.RevokedAt.Valid {
		t := k.RevokedAt.Time
		p.RevokedAt = &t
	}
	return p
}

// List returns the caller's keys, revoked ones included for audit.
func (h *APIKeyHandler) List(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	keys, err := h.Keys.List(ctx, ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]keyPart, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyPart(k))
	}
	return c.JSON(http.StatusOK, echo.Map{"keys": out})
}

// Create generates a key. The raw secret appears in this response and never
// again.
func (h *APIKeyHandler) Create(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	var req createKeyReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw, rec, err := h.Keys.Generate(ctx, ident.UserID, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, service.ErrKeyLimitReached) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "active key limit reached"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create key failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"key":     raw, // shown exactly once, not retrievable later
		"record":  toKeyPart(rec),
		"warning": "store this key now; it cannot be shown again",
	})
}

// Revoke permanently deactivates a key.
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Keys.Revoke(ctx, id, ident.UserID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "key not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Rotate replaces a key, carrying its name and limits forward. The new raw
// secret appears in this response and never again.
func (h *APIKeyHandler) Rotate(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw, rec, err := h.Keys.Rotate(ctx, id, ident.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "key not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"key":     raw,
		"record":  toKeyPart(rec),
		"warning": "store this key now; it cannot be shown again",
	})
}
