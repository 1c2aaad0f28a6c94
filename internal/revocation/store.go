// Package revocation tracks bearer tokens invalidated by logout before their
// natural expiry.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps revoked token ids in Redis until the token would have expired.
type Store struct {
	client    redis.Cmdable
	namespace string
}

// New constructs a Store.
func New(client redis.Cmdable, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

// Revoke marks tokenID as revoked until expiresAt. Already expired tokens are
// ignored.
func (s *Store) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been revoked.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

func (s *Store) key(tokenID string) string {
	return s.namespace + ":revoked:" + tokenID
}
