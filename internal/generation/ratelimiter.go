package generation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	burstKeyPrefix = "generation:minute:"
	windowDuration = 60 * time.Second
	keyTTL         = 90 * time.Second
)

// BurstLimiter implements a Redis sorted-set sliding window capping
// generations per minute. It sits in front of the daily quota as a cheap
// brake on runaway clients; the daily ceiling remains the authoritative gate.
type BurstLimiter struct {
	rdb redis.Cmdable
}

// NewBurstLimiter creates a new Redis-based burst limiter.
func NewBurstLimiter(rdb redis.Cmdable) *BurstLimiter {
	return &BurstLimiter{rdb: rdb}
}

// CheckAndIncrement checks whether the user is under the per-minute limit.
// If under limit, it increments the counter and returns true (allowed).
// If over limit, it returns false (denied).
//
// The trim, add, and count run in one transactional pipeline, so two
// concurrent requests racing at the boundary both see each other's entry
// and the cap is never exceeded.
func (bl *BurstLimiter) CheckAndIncrement(ctx context.Context, userID uuid.UUID, maxPerMinute int) (bool, error) {
	key := burstKeyPrefix + userID.String()
	now := time.Now()
	nowMs := float64(now.UnixMilli())
	windowStart := float64(now.Add(-windowDuration).UnixMilli())
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := bl.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(windowStart, 'f', 0, 64))
	pipe.ZAdd(ctx, key, redis.Z{Score: nowMs, Member: member})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, keyTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("burst limiter pipeline: %w", err)
	}

	if countCmd.Val() > int64(maxPerMinute) {
		// Take the provisional entry back out so a denied attempt does
		// not consume capacity.
		bl.rdb.ZRem(ctx, key, member)
		return false, nil
	}
	return true, nil
}
