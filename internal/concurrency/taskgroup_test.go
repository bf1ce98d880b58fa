package concurrency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskGroupSuccess(t *testing.T) {
	g, ctx := NewTaskGroup(context.Background())

	var ran [3]bool
	for i := 0; i < 3; i++ {
		i := i
		g.StartSoon(func(ctx context.Context) error {
			ran[i] = true
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, [3]bool{true, true, true}, ran)
	assert.NoError(t, ctx.Err())
}

func TestTaskGroupSingleFailureCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	g, ctx := NewTaskGroup(context.Background())

	siblingSawCancel := make(chan bool, 1)
	g.StartSoon(func(ctx context.Context) error {
		return boom
	})
	g.StartSoon(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			siblingSawCancel <- true
		case <-time.After(2 * time.Second):
			siblingSawCancel <- false
		}
		return nil
	})

	err := g.Wait()
	assert.ErrorIs(t, err, boom)
	assert.True(t, <-siblingSawCancel)
	_ = ctx
}

func TestTaskGroupAbsorbsSiblingCancellationNoise(t *testing.T) {
	boom := errors.New("boom")
	g, _ := NewTaskGroup(context.Background())

	g.StartSoon(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return boom
	})
	g.StartSoon(func(ctx context.Context) error {
		<-ctx.Done()
		// A child cancelled by its sibling's failure re-raises the
		// cancellation signal; the group must not group it with the
		// genuine failure.
		return ctx.Err()
	})

	err := g.Wait()
	assert.ErrorIs(t, err, boom)
	var multi *MultiError
	assert.False(t, errors.As(err, &multi), "sibling cancellation noise must not produce a MultiError")
}

func TestTaskGroupRecordsAncestorCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewTaskGroup(parent)

	g.StartSoon(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cancel()
	err := g.Wait()
	assert.ErrorIs(t, err, context.Canceled,
		"a cancellation arriving from outside the group is a real outcome, not noise")
}

func TestTaskGroupMultiError(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	g, _ := NewTaskGroup(context.Background())
	g.StartSoon(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return errA
	})
	g.StartSoon(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return errB
	})

	err := g.Wait()
	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}
