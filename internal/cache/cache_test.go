package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseProvider(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	_, err := p.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, p.Set(ctx, "k", []byte("v1"), time.Minute))
	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, p.Set(ctx, "k", []byte("v2"), 0))
	got, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got, "Set overwrites")

	require.NoError(t, p.Del(ctx, "k"))
	_, err = p.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := NewRedisProvider(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer p.Close()

	exerciseProvider(t, p)

	require.NoError(t, p.Set(context.Background(), "ttl", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)
	_, err = p.Get(context.Background(), "ttl")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisProviderRequiresAddr(t *testing.T) {
	_, err := NewRedisProvider(RedisConfig{})
	assert.Error(t, err)
}

func TestRedisProviderFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisProvider(RedisConfig{Addr: addr, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestMemoryProvider(t *testing.T) {
	exerciseProvider(t, NewMemoryProvider())
}

func TestMemoryProviderExpiry(t *testing.T) {
	p := NewMemoryProvider()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, p.Set(ctx, "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)
	_, err := p.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, p.Set(ctx, "k", []byte("again"), 0))
	now = now.Add(24 * time.Hour)
	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), got, "zero ttl never expires")
}

func TestMemoryProviderCopiesValues(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, p.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	require.NoError(t, p.Set(context.Background(), "k", []byte("v"), 0))
	_, err := p.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestKeyScopesBySnapshotAndOperation(t *testing.T) {
	req := []byte(`{"dimensions":["complain"]}`)
	a := Key("snap-1", "breakdown", req)
	assert.Equal(t, a, Key("snap-1", "breakdown", req))
	assert.NotEqual(t, a, Key("snap-2", "breakdown", req))
	assert.NotEqual(t, a, Key("snap-1", "segments", req))
	assert.NotEqual(t, a, Key("snap-1", "breakdown", []byte(`{"dimensions":["geography"]}`)))
}
