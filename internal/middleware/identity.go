package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// Via tags how a request authenticated.
type Via int

const (
	ViaNone    Via = iota // no usable credential
	ViaSession            // access token, cookie-borne or bearer
	ViaAPIKey             // raw API key in the Authorization header
)

// Identity is the per-request authentication result, resolved once by the
// Resolve middleware and passed down explicitly instead of being re-derived
// by each handler. GuestAlbums carries the scope of a guest cookie when one
// accompanied the request, independent of the main variant.
type Identity struct {
	UserID      uint64
	Via         Via
	Key         *model.APIKey // set only when Via == ViaAPIKey
	GuestAlbums []uint64
}

// Authenticated reports whether the request carries a user identity.
func (i Identity) Authenticated() bool { return i.Via != ViaNone }

const identityKey = "identity"

// CurrentIdentity returns the Identity stored by Resolve. The zero value
// (no credential) comes back when the middleware did not run.
func CurrentIdentity(c echo.Context) Identity {
	if v, ok := c.Get(identityKey).(Identity); ok {
		return v
	}
	return Identity{}
}

// Resolve returns the middleware that authenticates every request. The
// resolution order is fixed:
//
//  1. cookie-borne access token;
//  2. refresh-cookie recovery: when the access cookie is missing or
//     invalid but a refresh cookie verifies, the session is rotated and
//     fresh cookies are set on the response. Recovery never runs for
//     requests under RefreshCookiePath: those handlers consume the
//     refresh cookie themselves, and rotating it here first would hand
//     them an already-consumed token;
//  3. Authorization header, carrying either a raw API key (recognized by
//     its marker) or a bearer access token.
//
// The first credential that validates wins; an invalid cookie never blocks
// a valid header. A request with nothing usable proceeds as Identity{} and
// route guards decide whether that is acceptable. Guest cookies are decoded
// alongside and attached to whatever identity results.
func Resolve(secrets utils.Secrets, refresh *service.RefreshService, keys *service.APIKeyService, cookieSecure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := Identity{}

			if cookie, err := c.Cookie(GuestCookie); err == nil && cookie.Value != "" {
				if claims, err := utils.ParseGuest(secrets.Guest, cookie.Value); err == nil {
					ident.GuestAlbums = claims.AlbumIDs
				}
			}

			if cookie, err := c.Cookie(AccessCookie); err == nil && cookie.Value != "" {
				if claims, err := utils.ParseAccess(secrets.Access, cookie.Value); err == nil {
					ident.UserID = claims.UserID
					ident.Via = ViaSession
				}
			}

			if ident.Via == ViaNone && !strings.HasPrefix(c.Request().URL.Path, RefreshCookiePath) {
				if cookie, err := c.Cookie(RefreshCookie); err == nil && cookie.Value != "" {
					pair, err := refresh.Rotate(c.Request().Context(), cookie.Value)
					switch {
					case err == nil:
						SetAuthCookies(c, pair, cookieSecure)
						ident.UserID = pair.UserID
						ident.Via = ViaSession
					case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrTheftDetected):
						// Dead cookie; drop it and fall through to the header.
						ClearAuthCookies(c, cookieSecure)
					default:
						return internalError(c)
					}
				}
			}

			if ident.Via == ViaNone {
				if raw := headerCredential(c); raw != "" {
					if utils.IsAPIKey(raw) {
						rec, err := keys.Verify(c.Request().Context(), raw)
						switch {
						case err == nil:
							ident.UserID = rec.UserID
							ident.Via = ViaAPIKey
							ident.Key = &rec
						case errors.Is(err, service.ErrUnauthenticated):
							// leave unauthenticated
						default:
							return internalError(c)
						}
					} else if claims, err := utils.ParseAccess(secrets.Access, raw); err == nil {
						ident.UserID = claims.UserID
						ident.Via = ViaSession
					}
				}
			}

			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

// headerCredential extracts the credential from the Authorization header.
// Both "Bearer <value>" and "Key <value>" schemes are accepted, as is a
// bare value.
func headerCredential(c echo.Context) string {
	auth := strings.TrimSpace(c.Request().Header.Get("Authorization"))
	if auth == "" {
		return ""
	}
	for _, scheme := range []string{"Bearer ", "Key "} {
		if strings.HasPrefix(auth, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(auth, scheme))
		}
	}
	return auth
}
