package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/lightbox/internal/middleware"
	"github.com/mkarlsen/lightbox/internal/repository"
)

// ActivityHandler returns the account's recent activity log entries, as
// persisted by the queue consumer.
type ActivityHandler struct {
	Activity *repository.ActivityRepo
}

func NewActivityHandler(activity *repository.ActivityRepo) *ActivityHandler {
	return &ActivityHandler{Activity: activity}
}

type activityPart struct {
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recent lists the caller's latest entries, newest first.
func (h *ActivityHandler) Recent(c echo.Context) error {
	ident := middleware.CurrentIdentity(c)

	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Activity.ListForUser(ctx, ident.UserID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]activityPart, 0, len(entries))
	for _, e := range entries {
		p := activityPart{Event: e.Event, CreatedAt: e.CreatedAt}
		if e.Detail.Valid {
			p.Detail = e.Detail.String
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": out})
}
