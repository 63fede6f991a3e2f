package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenReused is returned when a refresh tokenId was already spent.
var ErrTokenReused = errors.New("auth: refresh token already used")

// RefreshLedger tracks spent refresh token IDs.
type RefreshLedger interface {
	// Consume marks tokenID as spent until expiresAt. It fails with
	// ErrTokenReused if the ID was spent before.
	Consume(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// RedisLedger stores spent IDs as expiring keys.
type RedisLedger struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLedger constructs a RedisLedger.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, prefix: "auth:refresh:spent:", now: time.Now}
}

// Consume implements RefreshLedger.
func (l *RedisLedger) Consume(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return ErrTokenMalformed
	}
	ttl := expiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := l.client.SetNX(ctx, l.prefix+tokenID, l.now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return fmt.Errorf("auth: refresh ledger: %w", err)
	}
	if !ok {
		return ErrTokenReused
	}
	return nil
}

var _ RefreshLedger = (*RedisLedger)(nil)
