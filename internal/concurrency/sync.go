package concurrency

import (
	"context"
	"errors"
	"sync"
)

// ErrSemaphoreFull is returned by Semaphore.TryAcquire when at capacity.
var ErrSemaphoreFull = errors.New("semaphore is full")

// Semaphore is a counting semaphore with a non-scoped acquire/release
// surface: callers call Release themselves rather than through a
// returned closure, matching callers that hold the permit across
// multiple call frames.
type Semaphore struct {
	mu       sync.Mutex
	capacity int
	current  int
	waiters  []chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity (minimum 1).
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{capacity: capacity}
}

// TryAcquire attempts to acquire a permit without blocking.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < s.capacity {
		s.current++
		return true
	}
	return false
}

// Acquire blocks until a permit is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.current < s.capacity {
		s.current++
		s.mu.Unlock()
		return nil
	}
	waiter := make(chan struct{})
	s.waiters = append(s.waiters, waiter)
	s.mu.Unlock()

	select {
	case <-waiter:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == waiter {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return ctx.Err()
			}
		}
		s.mu.Unlock()
		// Release already handed this waiter the permit; give it back.
		s.Release()
		return ctx.Err()
	}
}

// Release releases a permit, waking a waiter if one is queued.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.waiters) > 0 {
		waiter := s.waiters[0]
		s.waiters = s.waiters[1:]
		close(waiter)
		return
	}
	if s.current > 0 {
		s.current--
	}
}

// Current returns the number of permits currently held.
func (s *Semaphore) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Capacity returns the semaphore's total permit count.
func (s *Semaphore) Capacity() int { return s.capacity }

// Available returns the number of unheld permits.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity - s.current
}

type lockTokenKey struct{}

// WithLockToken attaches a holder token to ctx so a Lock can recognize
// reentrant acquisition by the same logical caller. Go has no task-local
// storage, so the token travels explicitly through the context a caller
// threads through its own call chain.
func WithLockToken(ctx context.Context, token any) context.Context {
	return context.WithValue(ctx, lockTokenKey{}, token)
}

func lockTokenFrom(ctx context.Context) (any, bool) {
	v := ctx.Value(lockTokenKey{})
	return v, v != nil
}

// Lock is a mutual-exclusion lock that permits reentrant acquisition by
// the same holder token carried in ctx (see WithLockToken), and blocks
// any other token until the holder releases.
type Lock struct {
	mu        sync.Mutex
	held      bool
	holder    any
	reentrant int
	releaseCh chan struct{}
}

// NewLock creates an unheld Lock.
func NewLock() *Lock {
	return &Lock{releaseCh: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free or ctx carries the current
// holder's token (reentrant acquisition), or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	token, hasToken := lockTokenFrom(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.mu.Lock()
		if !l.held {
			l.held = true
			l.holder = token
			l.reentrant = 1
			l.mu.Unlock()
			return nil
		}
		if hasToken && l.holder == token {
			l.reentrant++
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-l.releaseCh:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Release releases one level of acquisition. The lock becomes free for
// other holders only once every reentrant Acquire has a matching Release.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.reentrant--
	if l.reentrant > 0 {
		return
	}
	l.held = false
	l.holder = nil
	select {
	case l.releaseCh <- struct{}{}:
	default:
	}
}

// Event is a single-shot signal: once Set, it stays set. Wait returns
// immediately for any caller arriving after Set.
type Event struct {
	ch   chan struct{}
	once sync.Once
}

// NewEvent creates an unset Event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set marks the event as signalled. Idempotent: calling it more than once
// has no additional effect.
func (e *Event) Set() {
	e.once.Do(func() { close(e.ch) })
}

// IsSet reports whether Set has been called.
func (e *Event) IsSet() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until Set is called or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Condition is a broadcast condition variable: Wait blocks until the next
// Broadcast call (or ctx is done); every waiter present at the time of a
// Broadcast is released.
type Condition struct {
	mu      sync.Mutex
	waiters []chan struct{}
}

// NewCondition creates a Condition with no pending waiters.
func NewCondition() *Condition {
	return &Condition{}
}

// Wait blocks until the next Broadcast or until ctx is done.
func (c *Condition) Wait(ctx context.Context) error {
	c.mu.Lock()
	ch := make(chan struct{})
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast wakes every goroutine currently blocked in Wait.
func (c *Condition) Broadcast() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}
