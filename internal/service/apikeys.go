package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/store"
)

const (
	// DefaultKeyName labels keys created without a name.
	DefaultKeyName = "unnamed"
	// MaxNameLength is the longest name kept, in runes.
	MaxNameLength = 80

	secretBytes = 32
)

// APIKeyStore is the storage port used by APIKeyService.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	FindAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]model.APIKey, error)
	SetAPIKeyActive(ctx context.Context, id int64, active bool) error
}

// CreatedAPIKey is returned once at creation and is the only place the
// plaintext secret ever appears.
type CreatedAPIKey struct {
	Key    *model.APIKey
	Secret string
}

// APIKeyService manages dashboard API keys. Only SHA-256 digests of the
// secrets are persisted.
type APIKeyService struct {
	store  APIKeyStore
	random io.Reader
}

// NewAPIKeyService creates an APIKeyService over st.
func NewAPIKeyService(st APIKeyStore) *APIKeyService {
	return &APIKeyService{store: st, random: rand.Reader}
}

// Create generates a new secret for name and stores its digest.
func (s *APIKeyService) Create(ctx context.Context, name string) (*CreatedAPIKey, error) {
	secret, err := s.generateSecret()
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		Name:    NormalizeName(name),
		KeyHash: HashSecret(secret),
		Active:  true,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return &CreatedAPIKey{Key: key, Secret: secret}, nil
}

// List returns every API key, newest first.
func (s *APIKeyService) List(ctx context.Context) ([]model.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return keys, nil
}

// Revoke deactivates the key with the given id. Revoking an unknown id is
// not an error.
func (s *APIKeyService) Revoke(ctx context.Context, id int64) error {
	if err := s.store.SetAPIKeyActive(ctx, id, false); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return nil
}

// Validate checks a presented secret and returns the owning record.
func (s *APIKeyService) Validate(ctx context.Context, presented string) (*model.APIKey, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrMissingCredential
	}

	key, err := s.store.FindAPIKeyByHash(ctx, HashSecret(presented))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if !key.Active {
		return nil, ErrForbidden
	}
	return key, nil
}

func (s *APIKeyService) generateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashSecret returns the hex SHA-256 digest of secret.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// NormalizeName defaults an empty name and truncates long ones.
func NormalizeName(name string) string {
	if name == "" {
		return DefaultKeyName
	}
	r := []rune(name)
	if len(r) > MaxNameLength {
		return string(r[:MaxNameLength])
	}
	return name
}
