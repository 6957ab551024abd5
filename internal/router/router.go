// Package router wires handlers, guards and caching onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlsen/lightbox/internal/config"
	"github.com/mkarlsen/lightbox/internal/handler"
	"github.com/mkarlsen/lightbox/internal/middleware"
	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	APIKeys  *handler.APIKeyHandler
	Albums   *handler.AlbumHandler
	Guests   *handler.GuestHandler
	Photos   *handler.PhotoHandler
	Activity *handler.ActivityHandler
	Public   *handler.PublicHandler
}

// Register mounts all routes. Identity resolution and rate limiting run on
// every /v1 route; per-route guards then decide what kind of identity is
// acceptable. The public browse surface runs behind the response cache and
// is never rate limited (no API key means nothing to meter).
func Register(e *echo.Echo, cfg config.Config, secrets utils.Secrets,
	refresh *service.RefreshService, keys *service.APIKeyService, limiter *service.RateLimiter,
	rdb *redis.Client, h Handlers) {

	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.Resolve(secrets, refresh, keys, cfg.CookieSecure))
	v1.Use(middleware.RateLimit(limiter))

	// Credential exchange: no identity required.
	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/external", h.Auth.ExternalSignIn)
	auth.POST("/refresh", h.Auth.RefreshSession)
	auth.POST("/logout", h.Auth.Logout)

	v1.GET("/me", h.Auth.Me, middleware.RequireAuth())

	// Account surface: interactive sessions only. A leaked API key must not
	// be able to manage keys or read the activity log.
	account := v1.Group("", middleware.RequireSession())
	account.GET("/keys", h.APIKeys.List)
	account.POST("/keys", h.APIKeys.Create)
	account.DELETE("/keys/:id", h.APIKeys.Revoke)
	account.POST("/keys/:id/rotate", h.APIKeys.Rotate)
	account.GET("/activity", h.Activity.Recent)

	// Albums and photos: session or API key; role checks happen inside the
	// handlers via the role resolver. Get/List stay guard-free so guest
	// cookies and public albums work without a user identity.
	v1.POST("/albums", h.Albums.Create, middleware.RequireAuth())
	v1.GET("/albums", h.Albums.ListMine, middleware.RequireAuth())
	v1.GET("/albums/:id", h.Albums.Get)
	v1.PUT("/albums/:id", h.Albums.Update, middleware.RequireAuth())
	v1.POST("/albums/:id/invite", h.Albums.RegenerateInvite, middleware.RequireAuth())
	v1.GET("/albums/:id/members", h.Albums.ListMembers)
	v1.PUT("/albums/:id/members/:userID", h.Albums.SetMember, middleware.RequireAuth())
	v1.DELETE("/albums/:id/members/:userID", h.Albums.RemoveMember, middleware.RequireAuth())

	v1.POST("/albums/:id/photos", h.Photos.Create, middleware.RequireAuth())
	v1.GET("/albums/:id/photos", h.Photos.ListByAlbum)
	v1.GET("/photos/:id/download", h.Photos.DownloadURL)

	v1.POST("/guest/accept", h.Guests.AcceptInvite)

	// Public browse, cached.
	pub := e.Group("/v1/public")
	pub.Use(middleware.ResponseCache(config.LoadCacheConfig(), rdb))
	pub.GET("/albums", h.Public.ListPublicAlbums)
}
