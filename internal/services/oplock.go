package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrOperationInFlight means the caller already has a ledger operation
// pending; a second one could double-spend the same on-chain record.
var ErrOperationInFlight = errors.New("another operation is already in flight for this address")

// OpLocks serializes ledger operations per wallet address with redis
// SETNX leases. The TTL outlives the finality timeout so a crashed
// process cannot leave an address locked forever.
type OpLocks struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewOpLocks(rdb *redis.Client, ttl time.Duration) *OpLocks {
	if ttl <= 0 {
		ttl = 11 * time.Minute
	}
	return &OpLocks{rdb: rdb, ttl: ttl}
}

func (l *OpLocks) key(address string) string {
	return fmt.Sprintf("oplock:%s", address)
}

// Acquire takes the per-address lease or reports ErrOperationInFlight.
func (l *OpLocks) Acquire(ctx context.Context, address string) error {
	ok, err := l.rdb.SetNX(ctx, l.key(address), time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire op lock: %w", err)
	}
	if !ok {
		return ErrOperationInFlight
	}
	return nil
}

func (l *OpLocks) Release(ctx context.Context, address string) {
	l.rdb.Del(ctx, l.key(address))
}
