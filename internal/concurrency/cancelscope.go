package concurrency

import (
	"context"
	"time"

	pynerr "github.com/pynector/pynector-go/pkg/errors"
)

// CancelScope is a node in a cancellation tree: a context plus the cause
// function that cancels it and everything derived from it.
type CancelScope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewCancelScope derives a cancellable child scope from parent.
func NewCancelScope(parent context.Context) *CancelScope {
	ctx, cancel := context.WithCancelCause(parent)
	return &CancelScope{ctx: ctx, cancel: cancel}
}

// Context returns the scope's context, to be threaded into child work.
func (s *CancelScope) Context() context.Context { return s.ctx }

// Cancel cancels the scope and everything derived from it with cause.
func (s *CancelScope) Cancel(cause error) { s.cancel(cause) }

// shieldKey marks values that should survive a Shield boundary even
// though the shielded context is rooted fresh rather than derived from
// the cancellable parent.
type shieldKey struct{}

// Shield returns a context that carries the same values as ctx (so
// telemetry attached to ctx is still observable) but is detached from
// ctx's cancellation tree, so cleanup code running inside the shielded
// scope cannot be interrupted by an ancestor's cancellation.
func Shield(ctx context.Context) context.Context {
	shielded := context.WithValue(context.Background(), shieldKey{}, true)
	return carryValues(ctx, shielded)
}

// valueCarrier lets Shield copy arbitrary context values without knowing
// their keys in advance, by delegating Value lookups back to the
// original (cancellable) context while refusing to delegate Done/Err/Deadline.
type valueCarrier struct {
	context.Context // detached base (Background + shield marker)
	values          context.Context
}

func carryValues(values context.Context, base context.Context) context.Context {
	return &valueCarrier{Context: base, values: values}
}

func (v *valueCarrier) Value(key any) any {
	if val := v.Context.Value(key); val != nil {
		return val
	}
	return v.values.Value(key)
}

// DeadlineScope reports whether a MoveOnAfter/FailAfter scope's own
// deadline fired, as opposed to an ancestor cancellation.
type DeadlineScope struct {
	ctx    context.Context
	cancel context.CancelFunc
	ddl    time.Time
}

// Fired reports whether the scope's own deadline (not an ancestor
// cancellation) caused ctx.Err() to be non-nil.
func (d *DeadlineScope) Fired() bool {
	if d.ctx.Err() == nil {
		return false
	}
	return !time.Now().Before(d.ddl)
}

// MoveOnAfter derives a context that is cancelled after d elapses (or
// when parent is cancelled, whichever first), and a DeadlineScope to
// check afterward whether the timeout (rather than the parent) fired.
// The derived context's resources are released when its deadline passes
// or parent is done; call the scope's Cancel to release them earlier.
func MoveOnAfter(parent context.Context, d time.Duration) (context.Context, *DeadlineScope) {
	ctx, cancel := context.WithTimeout(parent, d)
	ddl, _ := ctx.Deadline()
	return ctx, &DeadlineScope{ctx: ctx, cancel: cancel, ddl: ddl}
}

// FailAfter behaves like MoveOnAfter, but is meant for callers that want
// a blocking operation's error translated into *errors.TimeoutError when
// the scope's own deadline (not an ancestor) fired. Use
// TranslateDeadline(scope, err) on the error returned from the guarded
// operation.
func FailAfter(parent context.Context, d time.Duration) (context.Context, *DeadlineScope) {
	return MoveOnAfter(parent, d)
}

// TranslateDeadline rewrites err into *errors.TimeoutError when scope's
// own deadline fired, preserving err as the wrapped cause. Any other
// error (including an ancestor's cancellation) is returned unchanged.
func TranslateDeadline(scope *DeadlineScope, err error) error {
	if err == nil {
		return nil
	}
	if scope.Fired() {
		return pynerr.NewTimeoutError("operation exceeded its deadline", err)
	}
	return err
}

// Cancel releases the scope's resources immediately. Safe to call after
// the deadline has already fired.
func (d *DeadlineScope) Cancel() { d.cancel() }
