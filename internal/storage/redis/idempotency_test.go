package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewIdempotencyStore(rdb, time.Hour), mr
}

func TestClaimCompleteReplay(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	id, claimed, err := s.Claim(ctx, "order:1:abc")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Zero(t, id)

	// Second attempt while the first is running.
	id, claimed, err = s.Claim(ctx, "order:1:abc")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Zero(t, id)

	require.NoError(t, s.Complete(ctx, "order:1:abc", 42))

	id, claimed, err = s.Claim(ctx, "order:1:abc")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, int64(42), id)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, claimed, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, s.Release(ctx, "k"))

	_, claimed, err = s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestKeysExpire(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, _, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "k", 7))

	mr.FastForward(2 * time.Hour)

	_, claimed, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestCorruptValue(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	require.NoError(t, mr.Set(keyPrefix+"k", "garbage"))

	_, _, err := s.Claim(ctx, "k")
	assert.Error(t, err)
}
