package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(8)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetJSON(ctx, "k", []float32{0.5, 1}, time.Minute))

	var got []float32
	hit, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []float32{0.5, 1}, got)

	now = now.Add(2 * time.Minute)
	hit, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCacheDel(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(8)
	require.NoError(t, err)

	require.NoError(t, c.SetJSON(ctx, "a", "x", 0))
	require.NoError(t, c.Del(ctx, "a", "missing"))

	var s string
	hit, _ := c.GetJSON(ctx, "a", &s)
	assert.False(t, hit)
}
