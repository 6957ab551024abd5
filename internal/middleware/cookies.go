package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/service"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// Cookie names. All three are HttpOnly and SameSite=Lax; the refresh cookie
// is additionally path-scoped to the refresh endpoint so it never rides
// along on ordinary requests.
const (
	AccessCookie  = "lb_access"
	RefreshCookie = "lb_refresh"
	GuestCookie   = "lb_guest"
)

// RefreshCookiePath is the only path the refresh cookie is sent to.
const RefreshCookiePath = "/v1/auth"

// SetAuthCookies writes the access and refresh cookies for a freshly issued
// token pair.
func SetAuthCookies(c echo.Context, pair service.TokenPair, secure bool) {
	c.SetCookie(authCookie(AccessCookie, pair.Access.Token, "/", pair.Access.Exp, secure))
	c.SetCookie(authCookie(RefreshCookie, pair.Refresh.Token, RefreshCookiePath, pair.Refresh.Exp, secure))
}

// ClearAuthCookies expires both auth cookies.
func ClearAuthCookies(c echo.Context, secure bool) {
	past := time.Unix(0, 0)
	c.SetCookie(authCookie(AccessCookie, "", "/", past, secure))
	c.SetCookie(authCookie(RefreshCookie, "", RefreshCookiePath, past, secure))
}

// SetGuestCookie writes the guest cookie carrying a scoped guest token.
func SetGuestCookie(c echo.Context, tok utils.GuestToken, secure bool) {
	c.SetCookie(authCookie(GuestCookie, tok.Token, "/", tok.Exp, secure))
}

func authCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
