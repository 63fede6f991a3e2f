package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedger(client), mr
}

func TestRedisLedgerRejectsSecondUse(t *testing.T) {
	ledger, mr := newLedger(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, ledger.Consume(ctx, "01HZX", exp))
	assert.ErrorIs(t, ledger.Consume(ctx, "01HZX", exp), ErrTokenReused)
	assert.NoError(t, ledger.Consume(ctx, "01HZY", exp))

	ttl := mr.TTL("auth:refresh:spent:01HZX")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestRedisLedgerForgetsAfterExpiry(t *testing.T) {
	ledger, mr := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Consume(ctx, "short", time.Now().Add(2*time.Second)))
	mr.FastForward(3 * time.Second)
	assert.NoError(t, ledger.Consume(ctx, "short", time.Now().Add(2*time.Second)))
}

func TestRedisLedgerRequiresTokenID(t *testing.T) {
	ledger, _ := newLedger(t)
	assert.ErrorIs(t, ledger.Consume(context.Background(), "", time.Now().Add(time.Minute)), ErrTokenMalformed)
}

func TestRedisLedgerSurfacesBackendErrors(t *testing.T) {
	ledger, mr := newLedger(t)
	mr.Close()
	err := ledger.Consume(context.Background(), "x", time.Now().Add(time.Minute))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenReused)
}
