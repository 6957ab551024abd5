package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/queue"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// SessionStore is the slice of the session repository the rotation protocol
// needs. *repository.SessionRepo satisfies it.
type SessionStore interface {
	Create(ctx context.Context, s model.RefreshSession) error
	Get(ctx context.Context, id string) (model.RefreshSession, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// TokenPair is what a login, registration or rotation hands back to the
// transport layer, which sets the two cookies.
type TokenPair struct {
	UserID  uint64
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// RefreshService owns the refresh-session lifecycle: issuing a session on
// login, the rotate-exactly-once exchange, reuse detection and revocation.
type RefreshService struct {
	sessions   SessionStore
	secrets    utils.Secrets
	accessTTL  time.Duration
	bcryptCost int
	publish    func(context.Context, queue.ActivityEvent) error // nil disables events
}

func NewRefreshService(sessions SessionStore, secrets utils.Secrets, accessTTL time.Duration, bcryptCost int,
	publish func(context.Context, queue.ActivityEvent) error) *RefreshService {
	return &RefreshService{
		sessions:   sessions,
		secrets:    secrets,
		accessTTL:  accessTTL,
		bcryptCost: bcryptCost,
		publish:    publish,
	}
}

// Issue opens a fresh refresh session for a user and returns the token
// pair. refreshTTL encodes the "remember me" choice made at login; rotation
// later carries the remaining lifetime forward, so the flag itself is never
// persisted.
func (s *RefreshService) Issue(ctx context.Context, userID uint64, refreshTTL time.Duration) (TokenPair, error) {
	return s.mint(ctx, userID, refreshTTL)
}

// Rotate exchanges a presented refresh token for a new access/refresh pair
// exactly once.
//
// The exchange is a fixed state machine: verify the signature, find
// the session row, compare the secret hash, check expiry, then replace the
// row under a fresh id. A missing row means the token was already rotated
// or logged out elsewhere (including losing a benign concurrent-rotation
// race) and fails with ErrUnauthenticated. A hash mismatch on a live row is
// the theft signal: the session is revoked on the spot and ErrTheftDetected
// comes back.
func (s *RefreshService) Rotate(ctx context.Context, rawToken string) (TokenPair, error) {
	// (1) Signature/expiry. A token that never verified has nothing to revoke.
	claims, err := utils.ParseRefresh(s.secrets.Refresh, rawToken)
	if err != nil {
		return TokenPair{}, ErrUnauthenticated
	}

	// (2) Session lookup by the embedded id.
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrUnauthenticated // already rotated or logged out
		}
		return TokenPair{}, err
	}

	// (3) Secret comparison. A live session presented with the wrong secret
	// can only mean a stale token is being replayed: revoke and reject.
	if !utils.VerifySecret(sess.SecretHash, claims.Secret) {
		if _, derr := s.sessions.Delete(ctx, sess.ID); derr != nil {
			return TokenPair{}, derr
		}
		s.emit(ctx, sess.UserID, queue.EventTheftDetected, fmt.Sprintf("session %s revoked", sess.ID))
		return TokenPair{}, ErrTheftDetected
	}

	// (4) Expiry of the stored record.
	now := time.Now().UTC()
	if now.After(sess.ExpiresAt) {
		_, _ = s.sessions.Delete(ctx, sess.ID)
		return TokenPair{}, ErrUnauthenticated
	}

	// (5) Legitimate rotation. Deleting first makes the old id unusable
	// before the replacement exists; the loser of a concurrent rotation sees
	// its delete hit zero rows and fails as "already rotated".
	deleted, err := s.sessions.Delete(ctx, sess.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if !deleted {
		return TokenPair{}, ErrUnauthenticated
	}

	// Carry the remaining lifetime forward: a remembered session renews
	// long, a default one renews short.
	pair, err := s.mint(ctx, sess.UserID, sess.ExpiresAt.Sub(now))
	if err != nil {
		return TokenPair{}, err
	}
	s.emit(ctx, sess.UserID, queue.EventRotated, "")
	return pair, nil
}

// RevokeSession deletes the session named by a presented refresh token, if
// it verifies. Used by single-session logout; an invalid token is reported
// as ErrUnauthenticated.
func (s *RefreshService) RevokeSession(ctx context.Context, rawToken string) error {
	claims, err := utils.ParseRefresh(s.secrets.Refresh, rawToken)
	if err != nil {
		return ErrUnauthenticated
	}
	if _, err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return err
	}
	return nil
}

// RevokeAll deletes every session of a user (logout everywhere).
func (s *RefreshService) RevokeAll(ctx context.Context, userID uint64) error {
	return s.sessions.DeleteAllForUser(ctx, userID)
}

// mint creates a new session row plus the matching token pair. The session
// id is minted fresh each time and never reused.
func (s *RefreshService) mint(ctx context.Context, userID uint64, refreshTTL time.Duration) (TokenPair, error) {
	sessionID := uuid.NewString()

	refresh, err := utils.NewRefreshToken(s.secrets.Refresh, userID, sessionID, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := utils.NewAccessToken(s.secrets.Access, userID, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	secretHash, err := utils.HashSecret(refresh.Secret, s.bcryptCost)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.Create(ctx, model.RefreshSession{
		ID:         sessionID,
		UserID:     userID,
		SecretHash: secretHash,
		ExpiresAt:  refresh.Exp,
	}); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{UserID: userID, Access: access, Refresh: refresh}, nil
}

func (s *RefreshService) emit(ctx context.Context, userID uint64, event, detail string) {
	if s.publish == nil {
		return
	}
	_ = s.publish(ctx, queue.ActivityEvent{UserID: userID, Event: event, Detail: detail})
}
