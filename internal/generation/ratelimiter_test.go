package generation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestBurstLimiter_UnderLimit(t *testing.T) {
	rdb := setupMiniredis(t)
	bl := NewBurstLimiter(rdb)
	ctx := context.Background()

	allowed, err := bl.CheckAndIncrement(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestBurstLimiter_AtLimit(t *testing.T) {
	rdb := setupMiniredis(t)
	bl := NewBurstLimiter(rdb)
	ctx := context.Background()
	userID := uuid.New()

	// Fill up to the limit
	for i := 0; i < 5; i++ {
		allowed, err := bl.CheckAndIncrement(ctx, userID, 5)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	// Next should be denied
	allowed, err := bl.CheckAndIncrement(ctx, userID, 5)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestBurstLimiter_DeniedAttemptConsumesNoCapacity(t *testing.T) {
	rdb := setupMiniredis(t)
	bl := NewBurstLimiter(rdb)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		allowed, err := bl.CheckAndIncrement(ctx, userID, 2)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	for i := 0; i < 3; i++ {
		allowed, err := bl.CheckAndIncrement(ctx, userID, 2)
		require.NoError(t, err)
		assert.False(t, allowed)
	}

	// Denied attempts pull their provisional entry back out, so the window
	// holds exactly the allowed requests.
	size, err := rdb.ZCard(ctx, burstKeyPrefix+userID.String()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)
}

func TestBurstLimiter_DifferentUsers(t *testing.T) {
	rdb := setupMiniredis(t)
	bl := NewBurstLimiter(rdb)
	ctx := context.Background()

	first := uuid.New()
	for i := 0; i < 3; i++ {
		allowed, err := bl.CheckAndIncrement(ctx, first, 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := bl.CheckAndIncrement(ctx, first, 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A second user's window is untouched by the first user's burst.
	allowed, err = bl.CheckAndIncrement(ctx, uuid.New(), 3)
	require.NoError(t, err)
	assert.True(t, allowed)
}
