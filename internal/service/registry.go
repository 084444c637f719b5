package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/store"
)

// Registry response messages.
const (
	MessageKeyAdded   = "Key added"
	MessageInvalidKey = "Invalid key"
	MessageKeyExpired = "Key expired"
	MessageKeyValid   = "Key valid"
)

// KeyStore is the storage port used by RegistryService.
type KeyStore interface {
	InsertKeyIfAbsent(ctx context.Context, k *model.Key) (bool, error)
	FindKey(ctx context.Context, key string) (*model.Key, error)
	ListKeys(ctx context.Context) ([]model.Key, error)
}

// KeyStatus is a registry key with its validity at listing time.
type KeyStatus struct {
	model.Key
	Expired bool `json:"expired"`
}

// AddResult acknowledges an AddKey call.
type AddResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyResult is the outcome of VerifyKey.
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// RegistryService stores license keys with an expiry derived from their
// type and answers whether a presented key is currently valid.
type RegistryService struct {
	store       KeyStore
	adminSecret []byte
	now         func() time.Time
}

// NewRegistryService creates a registry over st. An empty adminSecret
// rejects every AddKey call.
func NewRegistryService(st KeyStore, adminSecret string) *RegistryService {
	return &RegistryService{
		store:       st,
		adminSecret: []byte(adminSecret),
		now:         time.Now,
	}
}

// WithClock replaces the clock used for expiration math.
func (s *RegistryService) WithClock(now func() time.Time) *RegistryService {
	s.now = now
	return s
}

// AddKey registers key with the given type. A key that already exists is
// left unchanged and the call still succeeds.
func (s *RegistryService) AddKey(ctx context.Context, key, keyType, adminSecret string) (*AddResult, error) {
	if !s.secretMatches(adminSecret) {
		return nil, ErrUnauthorized
	}
	t, ok := model.ParseKeyType(keyType)
	if key == "" || !ok {
		return nil, ErrInvalidInput
	}

	now := s.now()
	k := &model.Key{
		Key:        key,
		Type:       t,
		CreatedAt:  now.UTC(),
		Expiration: ExpirationFor(t, now),
	}
	if _, err := s.store.InsertKeyIfAbsent(ctx, k); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return &AddResult{Success: true, Message: MessageKeyAdded}, nil
}

// VerifyKey reports whether key exists and has not expired.
func (s *RegistryService) VerifyKey(ctx context.Context, key string) (*VerifyResult, error) {
	if key == "" {
		return nil, ErrInvalidInput
	}

	k, err := s.store.FindKey(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return &VerifyResult{Valid: false, Message: MessageInvalidKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if k.ExpiredAt(s.now()) {
		return &VerifyResult{Valid: false, Message: MessageKeyExpired}, nil
	}
	return &VerifyResult{Valid: true, Message: MessageKeyValid}, nil
}

// ListKeys returns every registry key, newest first, marked expired or not
// against the service clock. It needs no admin secret, like VerifyKey.
func (s *RegistryService) ListKeys(ctx context.Context) ([]KeyStatus, error) {
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	now := s.now()
	out := make([]KeyStatus, len(keys))
	for i, k := range keys {
		out[i] = KeyStatus{Key: k, Expired: k.ExpiredAt(now)}
	}
	return out, nil
}

func (s *RegistryService) secretMatches(presented string) bool {
	if len(s.adminSecret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), s.adminSecret) == 1
}
