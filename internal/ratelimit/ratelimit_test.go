package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiterSpacesSameHost(t *testing.T) {
	hl := NewHostLimiter(20, 1) // one request every 50ms
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, hl.Wait(ctx, "example.com"))
	require.NoError(t, hl.Wait(ctx, "EXAMPLE.com"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	stats := hl.GetStats()
	assert.Equal(t, 1, stats["hosts"])
	assert.Equal(t, 2, stats["waits"])
}

func TestHostLimiterIndependentHosts(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.Wait(ctx, "a.com"))
	require.NoError(t, hl.Wait(ctx, "b.com"))
	assert.Error(t, hl.Wait(ctx, "a.com"))
}

func TestHostLimiterDisabled(t *testing.T) {
	var nilLimiter *HostLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "a.com"))

	hl := NewHostLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, hl.Wait(context.Background(), "a.com"))
	}
}
