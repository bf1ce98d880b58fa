package concurrency

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// CapacityLimiter bounds the number of concurrent holders to a fixed
// capacity, delegating to the vetted golang.org/x/sync/semaphore.Weighted
// implementation rather than a hand-rolled waiter-channel list.
type CapacityLimiter struct {
	sem      *semaphore.Weighted
	capacity int64
}

// NewCapacityLimiter creates a limiter allowing at most capacity
// concurrent holders. capacity <= 0 is treated as 1.
func NewCapacityLimiter(capacity int) *CapacityLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &CapacityLimiter{sem: semaphore.NewWeighted(int64(capacity)), capacity: int64(capacity)}
}

// Acquire blocks until a permit is available or ctx is done, returning a
// release function to call exactly once when the caller is finished.
func (l *CapacityLimiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, ctx.Err()
	}
	return func() { l.sem.Release(1) }, nil
}

// TryAcquire attempts to acquire a permit without blocking.
func (l *CapacityLimiter) TryAcquire() (release func(), ok bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	return func() { l.sem.Release(1) }, true
}

// Capacity returns the limiter's total permit count.
func (l *CapacityLimiter) Capacity() int { return int(l.capacity) }
