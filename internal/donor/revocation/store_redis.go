package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "trl:donor:"

// Redis is the revocation list for distributed deployments where multiple
// instances must agree on revoked tokens.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed revocation list.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Revoke marks the token revoked until its natural expiry. Uses SET with
// expiry for an atomic set-with-TTL.
func (r *Redis) Revoke(ctx context.Context, tokenString string, ttl time.Duration) error {
	if tokenString == "" || ttl <= 0 {
		return nil
	}
	key := revokedTokenKeyPrefix + Digest(tokenString)
	// Key existence is the marker; the value is irrelevant.
	return r.client.Set(ctx, key, "1", ttl).Err()
}

// IsRevoked reports whether the token is on the list. A missing key means
// not revoked (or already expired).
func (r *Redis) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	if tokenString == "" {
		return false, nil
	}
	key := revokedTokenKeyPrefix + Digest(tokenString)
	_, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
