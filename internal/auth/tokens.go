package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore tracks revoked bearer credentials in redis. Revocation is
// idempotent: revoking an already-revoked token succeeds, and the denylist
// entry outlives the token's own expiry by a small margin so a revoked
// credential can never be replayed.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt) + time.Hour
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return s.client.Set(ctx, revokedTokenKey(token), "", ttl).Err()
}

func (s *TokenStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func revokedTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("token:revoked:%s", hex.EncodeToString(sum[:]))
}
