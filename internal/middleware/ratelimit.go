package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/service"
)

// RateLimit meters API-key identities against their per-key minute and day
// caps. Session identities pass through unmetered; only programmatic access
// is charged. Must run after Resolve.
func RateLimit(limiter *service.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := CurrentIdentity(c)
			if ident.Via != ViaAPIKey || ident.Key == nil {
				return next(c)
			}

			key := ident.Key
			res, err := limiter.CheckAndIncrement(c.Request().Context(), key.ID, key.MinuteLimit, key.DailyLimit)
			if err != nil {
				return internalError(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(key.MinuteLimit))

			if res.Outcome != service.LimitAllowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"window":      res.Window(),
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}
