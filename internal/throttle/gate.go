// Package throttle caps concurrent analyses per owner across API instances.
package throttle

import (
	"context"
	"errors"
	"time"

	"callnotes/internal/calls"
	"callnotes/pkg/logger"
	"callnotes/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "callnotes:analysis:inflight:"

// RedisGate implements calls.Gate with a Redis counter per owner.
//
// If Redis is unreachable the gate fails open: ingestion proceeds without a slot.
type RedisGate struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

var _ calls.Gate = (*RedisGate)(nil)

// NewRedisGate allows limit concurrent analyses per owner. Slot keys expire after ttl
// so a crashed holder cannot block an owner forever.
func NewRedisGate(rdb *redis.Client, limit int, ttl time.Duration) (*RedisGate, error) {
	if rdb == nil {
		return nil, errors.New("throttle: redis client is required")
	}
	if limit <= 0 || ttl <= 0 {
		return nil, errors.New("throttle: limit and ttl must be positive")
	}
	return &RedisGate{rdb: rdb, limit: limit, ttl: ttl}, nil
}

func (g *RedisGate) Acquire(ctx context.Context, ownerID string) (func(), error) {
	key := keyPrefix + ownerID
	ok, err := utils.AcquireSlot(ctx, g.rdb, key, g.limit, g.ttl)
	if err != nil {
		logger.From(ctx).Warn("analysis gate unavailable, continuing without slot", "err", err)
		return func() {}, nil
	}
	if !ok {
		return nil, calls.ErrBusy
	}
	return func() {
		// release even if the request context is already cancelled
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := utils.ReleaseSlot(rctx, g.rdb, key); err != nil {
			logger.From(ctx).Warn("analysis gate release failed", "err", err)
		}
	}, nil
}
