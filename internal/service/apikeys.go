package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/lightbox/internal/model"
	"github.com/mkarlsen/lightbox/internal/queue"
	"github.com/mkarlsen/lightbox/internal/repository"
	"github.com/mkarlsen/lightbox/internal/utils"
)

// KeyStore is the slice of the API key repository the registry needs.
// *repository.APIKeyRepo satisfies it.
type KeyStore interface {
	Create(ctx context.Context, k model.APIKey) error
	GetByID(ctx context.Context, id string) (model.APIKey, error)
	FindActiveByPrefix(ctx context.Context, prefix string) ([]model.APIKey, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.APIKey, error)
	CountActive(ctx context.Context, userID uint64) (int, error)
	Revoke(ctx context.Context, id string, userID uint64) (bool, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// APIKeyService is the key registry: generation, verification, revocation
// and rotation of long-lived API credentials.
type APIKeyService struct {
	keys          KeyStore
	bcryptCost    int
	maxActive     int
	minuteDefault int
	dailyDefault  int
	publish       func(context.Context, queue.ActivityEvent) error // nil disables events
}

func NewAPIKeyService(keys KeyStore, bcryptCost, maxActive, minuteDefault, dailyDefault int,
	publish func(context.Context, queue.ActivityEvent) error) *APIKeyService {
	return &APIKeyService{
		keys:          keys,
		bcryptCost:    bcryptCost,
		maxActive:     maxActive,
		minuteDefault: minuteDefault,
		dailyDefault:  dailyDefault,
		publish:       publish,
	}
}

// Generate creates a key for a user and returns the raw secret exactly
// once; only its hash and the short lookup prefix are stored. The per-user
// ceiling on active keys is enforced here, before anything is written.
func (s *APIKeyService) Generate(ctx context.Context, userID uint64, name string) (string, model.APIKey, error) {
	return s.generate(ctx, userID, name, s.minuteDefault, s.dailyDefault, true)
}

// Verify resolves a raw key to its active record, or ErrUnauthenticated.
// Keys without the marker are rejected before any database work. All active
// records sharing the lookup prefix are checked with bcrypt's constant-time
// comparator until one matches; the prefix keeps that scan to a handful of
// candidates.
func (s *APIKeyService) Verify(ctx context.Context, rawKey string) (model.APIKey, error) {
	prefix, ok := utils.APIKeyPrefix(rawKey)
	if !ok {
		return model.APIKey{}, ErrUnauthenticated
	}
	candidates, err := s.keys.FindActiveByPrefix(ctx, prefix)
	if err != nil {
		return model.APIKey{}, err
	}
	for _, k := range candidates {
		if utils.VerifySecret(k.KeyHash, rawKey) {
			_ = s.keys.TouchLastUsed(ctx, k.ID, time.Now().UTC())
			return k, nil
		}
	}
	return model.APIKey{}, ErrUnauthenticated
}

// Revoke stamps a key revoked. Ownership-checked: a key not owned by the
// caller looks the same as a missing one.
func (s *APIKeyService) Revoke(ctx context.Context, id string, userID uint64) error {
	ok, err := s.keys.Revoke(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.emit(ctx, userID, queue.EventKeyRevoked, id)
	return nil
}

// Rotate revokes a key and issues a replacement carrying forward its name
// and limits. The new key is generated first so there is never a window
// with no valid key; the brief overlap until the revoke lands is the safer
// failure mode.
func (s *APIKeyService) Rotate(ctx context.Context, id string, userID uint64) (string, model.APIKey, error) {
	old, err := s.keys.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.APIKey{}, ErrNotFound
		}
		return "", model.APIKey{}, err
	}
	if old.UserID != userID || !old.Active() {
		return "", model.APIKey{}, ErrNotFound
	}

	raw, rec, err := s.generate(ctx, userID, old.Name, old.MinuteLimit, old.DailyLimit, false)
	if err != nil {
		return "", model.APIKey{}, err
	}
	if _, err := s.keys.Revoke(ctx, old.ID, userID); err != nil {
		return "", model.APIKey{}, err
	}
	s.emit(ctx, userID, queue.EventKeyRotated, old.ID+" -> "+rec.ID)
	return raw, rec, nil
}

// List returns a user's keys, revoked ones included.
func (s *APIKeyService) List(ctx context.Context, userID uint64) ([]model.APIKey, error) {
	return s.keys.ListByUser(ctx, userID)
}

// generate does the shared work of Generate and Rotate. enforceCeiling is
// false during rotation, where the old key is about to be revoked and the
// momentary overlap is intended.
func (s *APIKeyService) generate(ctx context.Context, userID uint64, name string, minuteLimit, dailyLimit int, enforceCeiling bool) (string, model.APIKey, error) {
	if enforceCeiling {
		n, err := s.keys.CountActive(ctx, userID)
		if err != nil {
			return "", model.APIKey{}, err
		}
		if n >= s.maxActive {
			return "", model.APIKey{}, ErrKeyLimitReached
		}
	}

	raw, prefix, err := utils.NewAPIKey()
	if err != nil {
		return "", model.APIKey{}, err
	}
	hash, err := utils.HashSecret(raw, s.bcryptCost)
	if err != nil {
		return "", model.APIKey{}, err
	}
	rec := model.APIKey{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		KeyPrefix:   prefix,
		KeyHash:     hash,
		MinuteLimit: minuteLimit,
		DailyLimit:  dailyLimit,
	}
	if err := s.keys.Create(ctx, rec); err != nil {
		return "", model.APIKey{}, err
	}
	if enforceCeiling {
		s.emit(ctx, userID, queue.EventKeyCreated, rec.ID)
	}
	return raw, rec, nil
}

func (s *APIKeyService) emit(ctx context.Context, userID uint64, event, detail string) {
	if s.publish == nil {
		return
	}
	_ = s.publish(ctx, queue.ActivityEvent{UserID: userID, Event: event, Detail: detail})
}
