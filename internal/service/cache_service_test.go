package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceRoundTrip(t *testing.T) {
	mc := newMemCache()
	metrics := NewMetricsService()
	svc := NewCacheService(mc, metrics, time.Minute, nil, true)
	ctx := context.Background()

	var out map[string]string
	assert.False(t, svc.Get(ctx, "k", &out))

	svc.Set(ctx, "k", map[string]string{"a": "b"}, 0)
	require.True(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, "b", out["a"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.0001)
}

func TestCacheServiceFailuresAreMisses(t *testing.T) {
	mc := newMemCache()
	mc.entries["k"] = []byte(`"v"`)
	mc.getErr = errBoom
	svc := NewCacheService(mc, nil, time.Minute, nil, true)

	var out string
	assert.False(t, svc.Get(context.Background(), "k", &out))
}

func TestCacheServiceGenerations(t *testing.T) {
	mc := newMemCache()
	svc := NewCacheService(mc, nil, time.Minute, nil, true)
	ctx := context.Background()

	gen, ok := svc.Generation(ctx, "gen")
	require.True(t, ok)
	assert.Zero(t, gen)

	assert.True(t, svc.Bump(ctx, "gen"))
	assert.True(t, svc.Bump(ctx, "gen"))
	gen, ok = svc.Generation(ctx, "gen")
	require.True(t, ok)
	assert.EqualValues(t, 2, gen)

	mc.getErr = errBoom
	_, ok = svc.Generation(ctx, "gen")
	assert.False(t, ok)

	mc.incrErr = errBoom
	assert.False(t, svc.Bump(ctx, "gen"))
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	mc := newMemCache()
	svc := NewCacheService(mc, nil, time.Minute, nil, true)
	ctx := context.Background()

	svc.Set(ctx, reportCardKey("stu-1", 0, 0), 1, 0)
	svc.Set(ctx, reportCardKey("stu-2", 0, 1), 2, 0)
	svc.Set(ctx, "gabus:other:1", 3, 0)

	svc.InvalidatePattern(ctx, reportCardPattern())
	assert.NotContains(t, mc.entries, reportCardKey("stu-1", 0, 0))
	assert.NotContains(t, mc.entries, reportCardKey("stu-2", 0, 1))
	assert.Contains(t, mc.entries, "gabus:other:1")
}

func TestCacheServiceDisabled(t *testing.T) {
	mc := newMemCache()
	svc := NewCacheService(mc, nil, time.Minute, nil, false)
	ctx := context.Background()

	svc.Set(ctx, "k", 1, 0)
	assert.Empty(t, mc.entries)
	assert.False(t, svc.Enabled())

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.False(t, nilSvc.Get(ctx, "k", new(int)))
	assert.False(t, nilSvc.Bump(ctx, "k"))
	_, ok := nilSvc.Generation(ctx, "k")
	assert.False(t, ok)
}
