package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/indrealty/realty-cms/pkg/realtycms/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedis(client, "realty:"), mr
}

func TestRedis(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "sitemap.xml")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.Set(ctx, "sitemap.xml", []byte("<urlset/>"), time.Hour))
	assert.True(t, mr.Exists("realty:sitemap.xml"))

	got, err := c.Get(ctx, "sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []byte("<urlset/>"), got)

	mr.FastForward(2 * time.Hour)
	_, err = c.Get(ctx, "sitemap.xml")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedis_Delete(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))
	assert.False(t, mr.Exists("realty:a"))
	assert.False(t, mr.Exists("realty:b"))
	require.NoError(t, c.Delete(ctx))
}

func TestRedis_ServerDown(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrMiss)
}

func TestMemory(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Set(ctx, "expired", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, err = c.Get(ctx, "expired")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestNoop(t *testing.T) {
	var c cache.Cache = cache.Noop{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestInvalidatingSink(t *testing.T) {
	c := cache.NewMemory()
	ctx := context.Background()
	sink := cache.NewInvalidatingSink(c, "sitemap.xml", "news-sitemap.xml")

	var _ realtycms.EventSink = sink

	fill := func() {
		require.NoError(t, c.Set(ctx, "sitemap.xml", []byte("a"), 0))
		require.NoError(t, c.Set(ctx, "news-sitemap.xml", []byte("b"), 0))
		require.NoError(t, c.Set(ctx, "other", []byte("c"), 0))
	}

	for _, emit := range []func() error{
		func() error { return sink.ContentCreated(ctx, realtycms.KindProperty, uuid.New(), "slug") },
		func() error { return sink.ContentUpdated(ctx, realtycms.KindProperty, uuid.New(), "toggle_top") },
		func() error { return sink.ContentDeleted(ctx, realtycms.KindProperty, uuid.New()) },
	} {
		fill()
		require.NoError(t, emit())
		_, err := c.Get(ctx, "sitemap.xml")
		assert.ErrorIs(t, err, cache.ErrMiss)
		_, err = c.Get(ctx, "news-sitemap.xml")
		assert.ErrorIs(t, err, cache.ErrMiss)
		_, err = c.Get(ctx, "other")
		assert.NoError(t, err)
	}
}
