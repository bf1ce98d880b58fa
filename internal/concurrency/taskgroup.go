// Package concurrency provides the structured-concurrency primitives used
// throughout pynector: a cancel-on-first-failure TaskGroup, capacity
// limiting, basic synchronization types, and cancellation-aware scopes.
package concurrency

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MultiError composites more than one child failure from a single
// TaskGroup.Wait call. It implements Unwrap() []error (Go 1.20+) so
// errors.Is/errors.As still find a matching member anywhere in the set.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	parts := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		parts[i] = err.Error()
	}
	return "multiple task failures: " + strings.Join(parts, "; ")
}

func (m *MultiError) Unwrap() []error { return m.Errors }

// TaskGroup runs a set of child functions concurrently, cancelling the
// group's shared context as soon as one child fails, and surfacing every
// distinct non-cancellation failure to the caller of Wait.
type TaskGroup struct {
	eg     *errgroup.Group
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu   sync.Mutex
	errs []error
}

// NewTaskGroup derives a cancellable child context from parent and returns
// a TaskGroup plus that context. Pass the returned context to StartSoon's
// closures so children observe the group's cancellation.
func NewTaskGroup(parent context.Context) (*TaskGroup, context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	eg, egCtx := errgroup.WithContext(ctx)
	return &TaskGroup{eg: eg, ctx: egCtx, cancel: cancel}, egCtx
}

// StartSoon schedules fn to run in its own goroutine. fn receives the
// group's shared context, which is cancelled as soon as any sibling fails.
func (g *TaskGroup) StartSoon(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		err := fn(g.ctx)
		if err != nil && !g.isCancellationNoise(err) {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
		return err
	})
}

// isCancellationNoise reports whether err is a cancellation a child
// observed only because a sibling's genuine failure already cancelled
// the group's shared context. Cancellation is a signal, not a failure:
// such errors are absorbed so Wait surfaces the sibling's own error
// alone. A cancellation that arrived from outside the group (an
// ancestor's cancel or deadline) is not noise and is still recorded.
func (g *TaskGroup) isCancellationNoise(err error) bool {
	if !errors.Is(err, context.Canceled) {
		return false
	}
	cause := context.Cause(g.ctx)
	return cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded)
}

// Wait blocks until every started child has returned. If more than one
// child failed, Wait returns a *MultiError wrapping every recorded
// failure; if exactly one failed, that error is returned directly; if
// none failed, Wait returns nil.
func (g *TaskGroup) Wait() error {
	_ = g.eg.Wait()
	g.cancel(nil)

	g.mu.Lock()
	defer g.mu.Unlock()

	switch len(g.errs) {
	case 0:
		return nil
	case 1:
		return g.errs[0]
	default:
		return &MultiError{Errors: append([]error(nil), g.errs...)}
	}
}
