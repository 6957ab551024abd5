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
	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints. Tokens travel as
// HttpOnly cookies; the access token is additionally returned in the body
// for non-browser clients, the refresh token never is.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Refresh *service.RefreshService
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, refresh *service.RefreshService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Refresh: refresh}
}

// ----- DTOs -----

type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Remember    bool   `json:"remember"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}
type externalReq struct {
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Remember    bool   `json:"remember"`
}

type userPart struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
type accessPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User   userPart   `json:"user"`
	Access accessPart `json:"access"`
}

func (h *AuthHandler) refreshTTL(remember bool) time.Duration {
	days := h.Cfg.RefreshTTLDays
	if remember {
		days = h.Cfg.RememberTTLDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Register creates a password account and opens a session immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password (min 8 chars) required"})
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		req.DisplayName = req.Email
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashSecret(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	uid, err := h.Users.Create(ctx, req.Email, hash, strings.TrimSpace(req.DisplayName))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	pair, err := h.Refresh.Issue(ctx, uid, h.refreshTTL(req.Remember))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	middleware.SetAuthCookies(c, pair, h.Cfg.CookieSecure)
	_ = queue.PublishActivity(ctx, queue.ActivityEvent{UserID: uid, Event: queue.EventRegister})

	return c.JSON(http.StatusCreated, authResp{
		User:   userPart{ID: uid, Email: req.Email, DisplayName: req.DisplayName},
		Access: accessPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
	})
}

// Login verifies credentials and opens a session. The remember flag only
// changes the refresh TTL; nothing about it is persisted.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.PasswordHash == "" || !utils.VerifySecret(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Refresh.Issue(ctx, u.ID, h.refreshTTL(req.Remember))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	middleware.SetAuthCookies(c, pair, h.Cfg.CookieSecure)
	_ = queue.PublishActivity(ctx, queue.ActivityEvent{UserID: u.ID, Event: queue.EventLogin})

	return c.JSON(http.StatusOK, authResp{
		User:   userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
		Access: accessPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
	})
}

// ExternalSignIn opens a session for an identity asserted by the external
// identity provider, creating the user on first sign-in. The assertion is
// verified upstream by the provider callback; this endpoint is mounted
// behind it and trusts the subject it receives.
func (h *AuthHandler) ExternalSignIn(c echo.Context) error {
	var req externalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Subject == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByExternalID(ctx, req.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		name := strings.TrimSpace(req.DisplayName)
		if name == "" {
			name = req.Email
		}
		uid, cerr := h.Users.CreateExternal(ctx, req.Email, req.Subject, name)
		if cerr != nil {
			if errors.Is(cerr, repository.ErrConflict) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		u, err = h.Users.GetByID(ctx, uid)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	pair, err := h.Refresh.Issue(ctx, u.ID, h.refreshTTL(req.Remember))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	middleware.SetAuthCookies(c, pair, h.Cfg.CookieSecure)
	_ = queue.PublishActivity(ctx, queue.ActivityEvent{UserID: u.ID, Event: queue.EventLogin, Detail: "external"})

	return c.JSON(http.StatusOK, authResp{
		User:   userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
		Access: accessPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
	})
}

// RefreshSession rotates the refresh cookie for a new access/refresh pair.
// Any failure, theft detection included, is the same 401 to the caller.
func (h *AuthHandler) RefreshSession(c echo.Context) error {
	cookie, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Refresh.Rotate(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) || errors.Is(err, service.ErrTheftDetected) {
			middleware.ClearAuthCookies(c, h.Cfg.CookieSecure)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	middleware.SetAuthCookies(c, pair, h.Cfg.CookieSecure)

	return c.JSON(http.StatusOK, echo.Map{
		"access": accessPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
	})
}

// Logout ends the current refresh session, or every session of the user
// when ?all=true and the request carries a session identity. Cookies are
// cleared either way.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ident := middleware.CurrentIdentity(c)
	if c.QueryParam("all") == "true" {
		if ident.Via != middleware.ViaSession {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
		}
		if err := h.Refresh.RevokeAll(ctx, ident.UserID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	} else if cookie, err := c.Cookie(middleware.RefreshCookie); err == nil && cookie.Value != "" {
		if err := h.Refresh.RevokeSession(ctx, cookie.Value); err != nil && !errors.Is(err, service.ErrUnauthenticated) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}

	middleware.ClearAuthCookies(c, h.Cfg.CookieSecure)
	if ident.Authenticated() {
		_ = queue.PublishActivity(ctx, queue.ActivityEvent{UserID: ident.UserID, Event: queue.EventLogout})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	via := "session"
	if ident.Via == middleware.ViaAPIKey {
		via = "api_key"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user": userPart{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName},
		"via":  via,
	})
}
