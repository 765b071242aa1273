package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediacms-io/mediacms-go/pkg/observability"
)

func setupCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheWithClient(client, ttl), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	uid := int64(7)
	stored := &Principal{ID: &uid, IsEditor: true, Categories: []int64{3, 9}}
	require.NoError(t, cache.Set(ctx, uid, stored))

	got, found, err := cache.Get(ctx, uid)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uid, got.UserID())
	assert.True(t, got.IsEditor)
	assert.Equal(t, []int64{3, 9}, got.Categories)
}

func TestCacheMissAfterTTL(t *testing.T) {
	cache, mr := setupCache(t, time.Minute)
	ctx := context.Background()

	uid := int64(7)
	require.NoError(t, cache.Set(ctx, uid, &Principal{ID: &uid}))

	mr.FastForward(2 * time.Minute)

	_, found, err := cache.Get(ctx, uid)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheDeleteInvalidates(t *testing.T) {
	cache, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	uid := int64(7)
	require.NoError(t, cache.Set(ctx, uid, &Principal{ID: &uid}))
	require.NoError(t, cache.Delete(ctx, uid))

	_, found, err := cache.Get(ctx, uid)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheCountsHitsAndMisses(t *testing.T) {
	cache, _ := setupCache(t, time.Minute)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	cache.SetMetrics(metrics)
	ctx := context.Background()

	uid := int64(7)
	_, found, err := cache.Get(ctx, uid)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.Set(ctx, uid, &Principal{ID: &uid}))
	_, found, err = cache.Get(ctx, uid)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("principal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("principal")))
}
