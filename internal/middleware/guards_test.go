package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGuard(t *testing.T, mw echo.MiddlewareFunc, ident Identity) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(identityKey, ident)

	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return rec
}

func TestRequireAuth(t *testing.T) {
	rec := runGuard(t, RequireAuth(), Identity{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runGuard(t, RequireAuth(), Identity{UserID: 1, Via: ViaSession})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runGuard(t, RequireAuth(), Identity{UserID: 1, Via: ViaAPIKey})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSession(t *testing.T) {
	rec := runGuard(t, RequireSession(), Identity{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runGuard(t, RequireSession(), Identity{UserID: 1, Via: ViaSession})
	assert.Equal(t, http.StatusOK, rec.Code)

	// A leaked API key must never reach account management.
	rec = runGuard(t, RequireSession(), Identity{UserID: 1, Via: ViaAPIKey})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
