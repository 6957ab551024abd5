package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/queue"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/utils"
)

var testSecrets = utils.Secrets{
	Access:  "access-secret-for-tests",
	Refresh: "refresh-secret-for-tests",
	Guest:   "guest-secret-for-tests",
}

// fakeSessions is an in-memory SessionStore.
type fakeSessions struct {
	mu   sync.Mutex
	rows map[string]model.RefreshSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]model.RefreshSession{}}
}

func (f *fakeSessions) Create(_ context.Context, s model.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[s.ID] = s
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (model.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return model.RefreshSession{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

func (f *fakeSessions) DeleteAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.rows {
		if s.UserID == userID {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeSessions) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeSessions) only() model.RefreshSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.rows {
		return s
	}
	return model.RefreshSession{}
}

// eventRecorder captures published activity events.
type eventRecorder struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
}

func (r *eventRecorder) publish(_ context.Context, e queue.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

func newRefreshService(store *fakeSessions, rec *eventRecorder) *RefreshService {
	var publish func(context.Context, queue.ActivityEvent) error
	if rec != nil {
		publish = rec.publish
	}
	return NewRefreshService(store, testSecrets, 15*time.Minute, bcrypt.MinCost, publish)
}

func TestIssueCreatesSession(t *testing.T) {
	store := newFakeSessions()
	svc := newRefreshService(store, nil)

	pair, err := svc.Issue(context.Background(), 42, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access.Token)
	require.NotEmpty(t, pair.Refresh.Token)
	assert.Equal(t, uint64(42), pair.UserID)

	require.Equal(t, 1, store.len())
	sess := store.only()
	assert.Equal(t, uint64(42), sess.UserID)
	// Only the hash is at rest; it must match the secret inside the token.
	assert.NotEqual(t, pair.Refresh.Secret, sess.SecretHash)
	assert.True(t, utils.VerifySecret(sess.SecretHash, pair.Refresh.Secret))
}

func TestRotateExactlyOnce(t *testing.T) {
	store := newFakeSessions()
	svc := newRefreshService(store, nil)

	pair, err := svc.Issue(context.Background(), 42, 24*time.Hour)
	require.NoError(t, err)
	oldID := store.only().ID

	next, err := svc.Rotate(context.Background(), pair.Refresh.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), next.UserID)
	assert.NotEqual(t, pair.Refresh.Token, next.Refresh.Token)

	// The old session id is gone; one fresh one replaces it.
	require.Equal(t, 1, store.len())
	assert.NotEqual(t, oldID, store.only().ID)

	// A second presentation of the consumed token fails benignly: its
	// session id no longer exists, so nothing distinguishes it from a
	// logged-out session and nothing is revoked.
	_, err = svc.Rotate(context.Background(), pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 1, store.len())
}

func TestRotateDetectsTheft(t *testing.T) {
	store := newFakeSessions()
	rec := &eventRecorder{}
	svc := newRefreshService(store, rec)

	_, err := svc.Issue(context.Background(), 42, 24*time.Hour)
	require.NoError(t, err)
	sess := store.only()

	// A forged token naming a live session but carrying the wrong secret.
	// This is what a replayed pre-rotation token looks like after the
	// session row was re-keyed: live id, stale secret.
	forged, err := utils.NewRefreshToken(testSecrets.Refresh, 42, sess.ID, time.Hour)
	require.NoError(t, err)

	_, err = svc.Rotate(context.Background(), forged.Token)
	assert.ErrorIs(t, err, ErrTheftDetected)

	// The whole session family is dead and the event was emitted.
	assert.Equal(t, 0, store.len())
	assert.Contains(t, rec.names(), queue.EventTheftDetected)
}

func TestRotateExpiredRecord(t *testing.T) {
	store := newFakeSessions()
	svc := newRefreshService(store, nil)

	pair, err := svc.Issue(context.Background(), 42, 24*time.Hour)
	require.NoError(t, err)

	sess := store.only()
	sess.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	store.rows[sess.ID] = sess

	_, err = svc.Rotate(context.Background(), pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 0, store.len()) // expired row cleaned up on the spot
}

func TestRotateGarbageToken(t *testing.T) {
	svc := newRefreshService(newFakeSessions(), nil)
	_, err := svc.Rotate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRotateCarriesRemainingLifetime(t *testing.T) {
	store := newFakeSessions()
	svc := newRefreshService(store, nil)

	pair, err := svc.Issue(context.Background(), 42, 90*24*time.Hour)
	require.NoError(t, err)
	wantExp := store.only().ExpiresAt

	_, err = svc.Rotate(context.Background(), pair.Refresh.Token)
	require.NoError(t, err)

	// A remembered session stays remembered: the replacement expires when
	// the original would have, not one default TTL from now.
	assert.WithinDuration(t, wantExp, store.only().ExpiresAt, time.Minute)
}

func TestRevokeSession(t *testing.T) {
	store := newFakeSessions()
	svc := newRefreshService(store, nil)

	pair, err := svc.Issue(context.Background(), 42, time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(context.Background(), pair.Refresh.Token))
	assert.Equal(t, 0, store.len())

	// Revoking again is a no-op, not an error.
	assert.NoError(t, svc.RevokeSession(context.Background(), pair.Refresh.Token))

	assert.ErrorIs(t, svc.RevokeSession(context.Background(), "junk"), ErrUnauthenticated)
}

func TestRevokeAll(t *testing.T) {
	store := newFakeSessions()
	svc := newRefreshService(store, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(context.Background(), 42, time.Hour)
		require.NoError(t, err)
	}
	_, err := svc.Issue(context.Background(), 7, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 4, store.len())

	require.NoError(t, svc.RevokeAll(context.Background(), 42))
	assert.Equal(t, 1, store.len())
	assert.Equal(t, uint64(7), store.only().UserID)
}
