package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dardanova/dardanova"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	posts, gen, err := c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	assert.Nil(t, posts, "a miss is nil")
	assert.Zero(t, gen)

	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	want := []*dardanova.Post{{ID: "a", Title: "Merhaba", Lang: dardanova.LocaleTR, IsPublished: true, Views: 3, CreatedAt: created, UpdatedAt: created}}
	require.NoError(t, c.Set(ctx, dardanova.LocaleTR, gen, want))

	posts, _, err = c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	assert.Equal(t, want, posts)

	// locales are cached separately, and an empty listing is a hit
	posts, gen, err = c.Get(ctx, dardanova.LocaleEN)
	require.NoError(t, err)
	assert.Nil(t, posts)
	require.NoError(t, c.Set(ctx, dardanova.LocaleEN, gen, []*dardanova.Post{}))
	posts, _, err = c.Get(ctx, dardanova.LocaleEN)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, dardanova.LocaleTR, 0, []*dardanova.Post{{ID: "a"}}))
	mr.FastForward(ListTTL)

	posts, _, err := c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	assert.Nil(t, posts)
}

func TestRedisCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, dardanova.LocaleTR, 0, []*dardanova.Post{{ID: "a"}}))
	require.NoError(t, c.Set(ctx, dardanova.LocaleEN, 0, []*dardanova.Post{{ID: "b"}}))
	require.NoError(t, c.Invalidate(ctx))

	for _, lang := range dardanova.Locales {
		posts, gen, err := c.Get(ctx, lang)
		require.NoError(t, err)
		assert.Nil(t, posts)
		assert.EqualValues(t, 1, gen)
	}
}

func TestRedisCacheStaleSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// a listing read before a change is not stored after it
	_, gen, err := c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, dardanova.LocaleTR, gen, []*dardanova.Post{{ID: "unpublished"}}))

	posts, gen, err := c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	assert.Nil(t, posts)

	require.NoError(t, c.Set(ctx, dardanova.LocaleTR, gen, []*dardanova.Post{}))
	posts, _, err = c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	assert.NotNil(t, posts)
}

func TestRedisCacheUnavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), dardanova.LocaleTR)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c ListCache = Noop{}
	require.NoError(t, c.Set(ctx, dardanova.LocaleTR, 0, []*dardanova.Post{{ID: "a"}}))
	posts, _, err := c.Get(ctx, dardanova.LocaleTR)
	require.NoError(t, err)
	assert.Nil(t, posts)
}
