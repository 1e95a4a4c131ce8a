package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefixRevoked prefixes the keys of revoked session ids.
const KeyPrefixRevoked = "bookmarks:revoked:"

// RevokedKey returns the key marking a session as revoked.
func RevokedKey(sessionID string) string {
	return KeyPrefixRevoked + sessionID
}

// Revocations keeps signed-out session ids in redis until their tokens expire.
type Revocations struct {
	client *redis.Client
	now    func() time.Time
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{
		client: client,
		now:    time.Now,
	}
}

// Revoke marks every id as revoked until the given time. Ids whose expiry has
// already passed are skipped since their tokens no longer validate.
func (r *Revocations) Revoke(ctx context.Context, sessionIDs []string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, id := range sessionIDs {
		if id == "" {
			continue
		}
		pipe.Set(ctx, RevokedKey(id), 1, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

func (r *Revocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	n, err := r.client.Exists(ctx, RevokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

func (r *Revocations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Revocations) Close() error {
	return r.client.Close()
}
