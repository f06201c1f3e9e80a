package tokenstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoresTokenUnderFixedKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := NewSession(store, "abc", 0)

	require.NoError(t, s.Set(ctx, "first"))
	require.NoError(t, s.Set(ctx, "second"))

	raw, err := store.Get(ctx, "jwtToken:abc")
	require.NoError(t, err)
	assert.Equal(t, "second", raw)

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestSessionClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSession(NewMemoryStore(), "abc", 0)
	require.NoError(t, s.Set(ctx, "tok"))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))

	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := NewSession(store, "a", 0)
	b := NewSession(store, "b", 0)

	require.NoError(t, a.Set(ctx, "token-a"))

	token, err := b.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestEmptySessionHasNoToken(t *testing.T) {
	s := NewSession(NewMemoryStore(), "", 0)
	token, err := s.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.NoError(t, s.Clear(context.Background()))
}

func TestMemoryStoreExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis test. Set REDIS_TEST_ADDR=host:port to run.")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisStore(client, "gigboard-test:")
	s := NewSession(store, uuid.NewString(), time.Minute)

	require.NoError(t, s.Set(ctx, "tok"))
	token, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	ttl, err := client.TTL(ctx, "gigboard-test:"+Key(s.ID())).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Clear(ctx))
	token, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
