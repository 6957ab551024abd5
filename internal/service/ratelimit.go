package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarlsen/lightbox/internal/queue"
)

// UsageStore is the slice of the usage repository the limiter needs.
// *repository.UsageRepo satisfies it.
type UsageStore interface {
	IncrementWindow(ctx context.Context, keyID string, windowStart time.Time) (int64, error)
	SumSince(ctx context.Context, keyID string, since time.Time) (int64, error)
}

// Rate-limit outcomes. The zero value is LimitAllowed.
type LimitOutcome int

const (
	LimitAllowed LimitOutcome = iota
	LimitMinuteExceeded
	LimitDailyExceeded
)

// LimitResult reports the limiter's decision plus machine-readable retry
// guidance: how long until the exceeded window rolls over.
type LimitResult struct {
	Outcome    LimitOutcome
	RetryAfter time.Duration
}

// Window returns the wire name of the exceeded window.
func (r LimitResult) Window() string {
	switch r.Outcome {
	case LimitMinuteExceeded:
		return "minute"
	case LimitDailyExceeded:
		return "day"
	default:
		return ""
	}
}

// RateLimiter enforces the two nested fixed windows per API key: a minute
// cap and a day cap. Counters live in the shared store, so the decision is
// correct across running instances; the only write contention is absorbed
// by the store's atomic increment.
type RateLimiter struct {
	usage   UsageStore
	now     func() time.Time                                 // injectable clock for tests
	publish func(context.Context, queue.ActivityEvent) error // nil disables events
}

func NewRateLimiter(usage UsageStore, publish func(context.Context, queue.ActivityEvent) error) *RateLimiter {
	return &RateLimiter{usage: usage, now: time.Now, publish: publish}
}

// CheckAndIncrement charges one request against the key's current minute
// window and evaluates both caps. The minute window is incremented before
// the daily check so the daily sum always sees the just-charged request.
// Over-limit requests stay recorded for operator visibility; only the
// decision differs.
func (l *RateLimiter) CheckAndIncrement(ctx context.Context, keyID string, minuteLimit, dailyLimit int) (LimitResult, error) {
	now := l.now().UTC()
	minuteStart := now.Truncate(time.Minute)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := l.usage.IncrementWindow(ctx, keyID, minuteStart)
	if err != nil {
		return LimitResult{}, err
	}
	if count > int64(minuteLimit) {
		res := LimitResult{
			Outcome:    LimitMinuteExceeded,
			RetryAfter: minuteStart.Add(time.Minute).Sub(now),
		}
		l.emitLimited(ctx, keyID, res)
		return res, nil
	}

	total, err := l.usage.SumSince(ctx, keyID, dayStart)
	if err != nil {
		return LimitResult{}, err
	}
	if total > int64(dailyLimit) {
		res := LimitResult{
			Outcome:    LimitDailyExceeded,
			RetryAfter: dayStart.Add(24 * time.Hour).Sub(now),
		}
		l.emitLimited(ctx, keyID, res)
		return res, nil
	}
	return LimitResult{Outcome: LimitAllowed}, nil
}

func (l *RateLimiter) emitLimited(ctx context.Context, keyID string, res LimitResult) {
	if l.publish == nil {
		return
	}
	_ = l.publish(ctx, queue.ActivityEvent{
		Event:  queue.EventRateLimited,
		Detail: fmt.Sprintf("key %s exceeded %s window", keyID, res.Window()),
	})
}
