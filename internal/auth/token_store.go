package auth

import (
	"context"
	"time"

	"tasktracker/internal/cache"
)

const revokedTokenKeyPrefix = "revoked:access_token:"

// TokenStoreInterface defines the interface for token revocation.
type TokenStoreInterface interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) bool
}

// TokenStore keeps revoked token IDs in Redis until the tokens expire.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// Revoke marks a token ID as revoked for ttl. Non-positive TTLs are no-ops
// since the token has already expired.
func (s *TokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsRevoked checks whether a token ID was revoked. Redis being unavailable
// reads as not revoked.
func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	return s.cache.Exists(ctx, revokedTokenKeyPrefix+tokenID)
}
