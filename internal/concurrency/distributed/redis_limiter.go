// Package distributed provides an optional cross-process CapacityLimiter
// for callers who need a batch_request concurrency bound to hold across
// multiple OS processes sharing one upstream budget, rather than only
// within a single process. The in-process limiter remains the default.
package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// acquireScript atomically checks the current holder count against the
// capacity and increments if there's room, expiring the per-holder key
// after ttl so a crashed holder doesn't permanently consume a slot.
const acquireScript = `
local counter_key = KEYS[1]
local holder_key = KEYS[2]
local capacity = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call('GET', counter_key) or '0')
if current >= capacity then
    return 0
end

redis.call('INCR', counter_key)
redis.call('SET', holder_key, '1', 'EX', ttl)
redis.call('EXPIRE', counter_key, ttl)
return 1
`

const releaseScript = `
local counter_key = KEYS[1]
local holder_key = KEYS[2]

if redis.call('GET', holder_key) then
    redis.call('DEL', holder_key)
    local current = tonumber(redis.call('GET', counter_key) or '0')
    if current > 0 then
        redis.call('DECR', counter_key)
    end
end
return 1
`

// Limiter is a Redis-backed CapacityLimiter: callers sharing the same
// name and client are bound to the same capacity across processes.
type Limiter struct {
	client       *redis.Client
	name         string
	capacity     int
	holderTTL    time.Duration
	pollInterval time.Duration
	acquire      *redis.Script
	release      *redis.Script
}

// NewLimiter creates a distributed limiter bound to name with the given
// capacity. holderTTL bounds how long a permit survives if its holder
// never releases (e.g. a crashed process); pollInterval controls how
// often a blocked Acquire retries.
func NewLimiter(client *redis.Client, name string, capacity int, holderTTL, pollInterval time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if holderTTL <= 0 {
		holderTTL = 30 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &Limiter{
		client:       client,
		name:         name,
		capacity:     capacity,
		holderTTL:    holderTTL,
		pollInterval: pollInterval,
		acquire:      redis.NewScript(acquireScript),
		release:      redis.NewScript(releaseScript),
	}
}

func (l *Limiter) counterKey() string { return fmt.Sprintf("pynector:limiter:%s:count", l.name) }

func (l *Limiter) holderKey(holderID string) string {
	return fmt.Sprintf("pynector:limiter:%s:holder:%s", l.name, holderID)
}

// Scoped adapts l to the same scoped acquire shape as the in-process
// CapacityLimiter (Acquire(ctx) returning a release closure), minting a
// fresh holder ID per acquisition, so batch dispatch can consume either
// limiter through one interface.
func (l *Limiter) Scoped() *ScopedLimiter {
	return &ScopedLimiter{limiter: l}
}

// ScopedLimiter is the CapacityLimiter-shaped view of a Limiter.
type ScopedLimiter struct {
	limiter *Limiter
}

// Acquire blocks until a slot is available or ctx is done. The returned
// release frees exactly the slot this call acquired; it detaches from
// ctx so a cancelled caller can still return its slot.
func (s *ScopedLimiter) Acquire(ctx context.Context) (release func(), err error) {
	holderID := uuid.New().String()
	rel, err := s.limiter.Acquire(ctx, holderID)
	if err != nil {
		return nil, err
	}
	return func() { _ = rel(context.Background()) }, nil
}

// Acquire blocks, polling at pollInterval, until a permit is available or
// ctx is done. holderID must be unique per caller (e.g. a UUID) so the
// returned release function can identify which slot to free.
func (l *Limiter) Acquire(ctx context.Context, holderID string) (release func(context.Context) error, err error) {
	ttlSeconds := int(l.holderTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	for {
		res, err := l.acquire.Run(ctx, l.client,
			[]string{l.counterKey(), l.holderKey(holderID)},
			l.capacity, ttlSeconds,
		).Int()
		if err != nil {
			return nil, err
		}
		if res == 1 {
			return func(ctx context.Context) error {
				return l.release.Run(ctx, l.client, []string{l.counterKey(), l.holderKey(holderID)}).Err()
			}, nil
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}
