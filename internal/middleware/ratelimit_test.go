package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/service"
)

// memUsage is an in-memory service.UsageStore.
type memUsage struct {
	mu   sync.Mutex
	rows map[string]map[time.Time]int64
}

func newMemUsage() *memUsage { return &memUsage{rows: map[string]map[time.Time]int64{}} }

func (m *memUsage) IncrementWindow(_ context.Context, keyID string, windowStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.rows[keyID]
	if w == nil {
		w = map[time.Time]int64{}
		m.rows[keyID] = w
	}
	w[windowStart]++
	return w[windowStart], nil
}

func (m *memUsage) SumSince(_ context.Context, keyID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for start, n := range m.rows[keyID] {
		if !start.Before(since) {
			total += n
		}
	}
	return total, nil
}

func (m *memUsage) totalFor(keyID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, n := range m.rows[keyID] {
		total += n
	}
	return total
}

func runLimited(t *testing.T, limiter *service.RateLimiter, ident Identity) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/albums", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(identityKey, ident)

	h := RateLimit(limiter)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	return rec
}

func TestRateLimitMetersAPIKeys(t *testing.T) {
	usage := newMemUsage()
	limiter := service.NewRateLimiter(usage, nil)
	ident := Identity{
		UserID: 42,
		Via:    ViaAPIKey,
		Key:    &model.APIKey{ID: "k1", MinuteLimit: 2, DailyLimit: 1000},
	}

	for i := 0; i < 2; i++ {
		rec := runLimited(t, limiter, ident)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := runLimited(t, limiter, ident)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Error      string `json:"error"`
		Window     string `json:"window"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "too_many_requests", body.Error)
	assert.Equal(t, "minute", body.Window)
	assert.LessOrEqual(t, body.RetryAfter, 60)
}

// First-party traffic is never metered; only programmatic access is.
func TestRateLimitSkipsSessions(t *testing.T) {
	usage := newMemUsage()
	limiter := service.NewRateLimiter(usage, nil)

	for i := 0; i < 5; i++ {
		rec := runLimited(t, limiter, Identity{UserID: 42, Via: ViaSession})
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := runLimited(t, limiter, Identity{})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Zero(t, usage.totalFor("k1"))
	assert.Empty(t, usage.rows)
}
