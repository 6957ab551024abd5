package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsage is an in-memory UsageStore mirroring the fixed-window rows.
type fakeUsage struct {
	mu   sync.Mutex
	rows map[string]map[time.Time]int64 // keyID -> windowStart -> count
}

func newFakeUsage() *fakeUsage { return &fakeUsage{rows: map[string]map[time.Time]int64{}} }

func (f *fakeUsage) IncrementWindow(_ context.Context, keyID string, windowStart time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.rows[keyID]
	if w == nil {
		w = map[time.Time]int64{}
		f.rows[keyID] = w
	}
	w[windowStart]++
	return w[windowStart], nil
}

func (f *fakeUsage) SumSince(_ context.Context, keyID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for start, n := range f.rows[keyID] {
		if !start.Before(since) {
			total += n
		}
	}
	return total, nil
}

func newTestLimiter(store *fakeUsage, at time.Time) (*RateLimiter, *time.Time) {
	now := at
	l := NewRateLimiter(store, nil)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMinuteLimit(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 10, 30, 15, 0, time.UTC)
	l, _ := newTestLimiter(store, base)

	for i := 0; i < 3; i++ {
		res, err := l.CheckAndIncrement(context.Background(), "key-1", 3, 1000)
		require.NoError(t, err)
		assert.Equal(t, LimitAllowed, res.Outcome)
	}

	res, err := l.CheckAndIncrement(context.Background(), "key-1", 3, 1000)
	require.NoError(t, err)
	assert.Equal(t, LimitMinuteExceeded, res.Outcome)
	assert.Equal(t, "minute", res.Window())
	// 45s left in the 10:30 window when the clock reads 10:30:15.
	assert.Equal(t, 45*time.Second, res.RetryAfter)
}

func TestMinuteWindowRollover(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 10, 30, 59, 0, time.UTC)
	l, now := newTestLimiter(store, base)

	for i := 0; i < 2; i++ {
		_, err := l.CheckAndIncrement(context.Background(), "key-1", 2, 1000)
		require.NoError(t, err)
	}
	res, err := l.CheckAndIncrement(context.Background(), "key-1", 2, 1000)
	require.NoError(t, err)
	require.Equal(t, LimitMinuteExceeded, res.Outcome)

	// One second later a fresh window opens.
	*now = base.Add(time.Second)
	res, err = l.CheckAndIncrement(context.Background(), "key-1", 2, 1000)
	require.NoError(t, err)
	assert.Equal(t, LimitAllowed, res.Outcome)
}

func TestDailyLimit(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	l, now := newTestLimiter(store, base)

	// One request per minute so the minute cap never trips.
	for i := 0; i < 5; i++ {
		*now = base.Add(time.Duration(i) * time.Minute)
		res, err := l.CheckAndIncrement(context.Background(), "key-1", 60, 5)
		require.NoError(t, err)
		assert.Equal(t, LimitAllowed, res.Outcome)
	}

	*now = base.Add(5 * time.Minute)
	res, err := l.CheckAndIncrement(context.Background(), "key-1", 60, 5)
	require.NoError(t, err)
	assert.Equal(t, LimitDailyExceeded, res.Outcome)
	assert.Equal(t, "day", res.Window())
	// Blocked until UTC midnight.
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC).Sub(*now), res.RetryAfter)
}

func TestDailyWindowResetsAtMidnight(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 23, 58, 0, 0, time.UTC)
	l, now := newTestLimiter(store, base)

	for i := 0; i < 2; i++ {
		*now = base.Add(time.Duration(i) * time.Minute)
		_, err := l.CheckAndIncrement(context.Background(), "key-1", 60, 2)
		require.NoError(t, err)
	}
	res, err := l.CheckAndIncrement(context.Background(), "key-1", 60, 2)
	require.NoError(t, err)
	require.Equal(t, LimitDailyExceeded, res.Outcome)

	// Yesterday's windows do not count against the new day.
	*now = time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
	res, err = l.CheckAndIncrement(context.Background(), "key-1", 60, 2)
	require.NoError(t, err)
	assert.Equal(t, LimitAllowed, res.Outcome)
}

func TestOverLimitRequestsStayRecorded(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	l, _ := newTestLimiter(store, base)

	for i := 0; i < 5; i++ {
		_, err := l.CheckAndIncrement(context.Background(), "key-1", 1, 1000)
		require.NoError(t, err)
	}

	// Rejected requests are still charged to the window.
	total, err := store.SumSince(context.Background(), "key-1", base)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

// Simultaneous increments on a fresh window must converge to exactly the
// number of requests made; no update may be lost.
func TestConcurrentIncrementsConverge(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	l, _ := newTestLimiter(store, base)

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.CheckAndIncrement(context.Background(), "key-1", n, 10*n)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total, err := store.SumSince(context.Background(), "key-1", base)
	require.NoError(t, err)
	assert.Equal(t, int64(n), total)
}

func TestLimitsAreIndependentPerKey(t *testing.T) {
	store := newFakeUsage()
	base := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	l, _ := newTestLimiter(store, base)

	_, err := l.CheckAndIncrement(context.Background(), "key-a", 1, 1000)
	require.NoError(t, err)
	res, err := l.CheckAndIncrement(context.Background(), "key-a", 1, 1000)
	require.NoError(t, err)
	require.Equal(t, LimitMinuteExceeded, res.Outcome)

	res, err = l.CheckAndIncrement(context.Background(), "key-b", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, LimitAllowed, res.Outcome)
}
