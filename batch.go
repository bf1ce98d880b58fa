package pynector

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pynector/pynector-go/internal/concurrency"
	"github.com/pynector/pynector-go/internal/envconfig"
	"github.com/pynector/pynector-go/internal/telemetry"
	"github.com/pynector/pynector-go/pkg/transport"
)

// BatchItem is a single request within a BatchRequest call.
type BatchItem struct {
	Data    []byte
	Options []transport.Option
}

// BatchResult is the outcome of one BatchItem. By default every result
// (success or Err) is returned at its original index; with
// WithRaiseOnError(true), the first non-nil Err instead aborts the whole
// batch and BatchRequest returns that error directly.
type BatchResult struct {
	Data []byte
	Err  error
}

// Limiter bounds how many batch children run concurrently. The
// in-process limiter WithMaxConcurrency constructs satisfies it, as
// does the Redis-backed one returned by NewRedisLimiter for budgets
// shared across processes.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type batchConfig struct {
	maxConcurrency int
	limiter        Limiter
	raiseOnError   bool
	timeout        time.Duration
}

// BatchOption configures a single BatchRequest call.
type BatchOption func(*batchConfig)

// WithMaxConcurrency bounds how many requests in the batch run at once.
// Zero or negative defers to the "max_concurrency" config entry
// (instance config, then PYNECTOR_MAX_CONCURRENCY); when that is unset
// or not positive as well, the batch is unbounded.
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) { c.maxConcurrency = n }
}

// WithLimiter supplies the Limiter bounding the batch's concurrency in
// place of the in-process one WithMaxConcurrency would construct —
// e.g. a Redis-backed limiter from NewRedisLimiter whose slot budget
// spans every process sharing it.
func WithLimiter(l Limiter) BatchOption {
	return func(c *batchConfig) { c.limiter = l }
}

// WithRaiseOnError controls whether the first child failure aborts the
// whole batch (true) or is merely recorded at its index while the
// remaining requests continue (false, the default).
func WithRaiseOnError(raise bool) BatchOption {
	return func(c *batchConfig) { c.raiseOnError = raise }
}

// WithTimeout bounds the entire batch (not each individual request) to
// d, after which every still-running child observes ctx cancellation.
func WithTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) { c.timeout = d }
}

// BatchRequest runs every item in requests concurrently over this
// Client's transport, writing results to disjoint indices so no
// synchronization is needed between children. Start order is
// deterministic; completion order is not, and results are collated by
// index rather than completion.
//
// By default every child's outcome (success or error) is recorded at its
// index and the full results slice is returned with a nil error. With
// WithRaiseOnError(true), the first failing child cancels its siblings
// via the underlying TaskGroup and that error is returned directly,
// discarding the partially-filled results slice.
func (c *Client) BatchRequest(ctx context.Context, requests []BatchItem, opts ...BatchOption) ([]BatchResult, error) {
	cfg := batchConfig{raiseOnError: false}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxConcurrency <= 0 {
		cfg.maxConcurrency = envconfig.LookupInt(c.cfg.instanceConfig, "max_concurrency", 0)
	}

	ctx, span := c.telemetry.Tracer.StartSpan(ctx, "pynector.batch_request",
		telemetry.WithAttributes(
			attribute.Int("request.count", len(requests)),
			attribute.String("request.id", telemetry.NewRequestID()),
		))
	defer telemetry.Detach(span)

	var scope *concurrency.DeadlineScope
	if cfg.timeout > 0 {
		ctx, scope = concurrency.FailAfter(ctx, cfg.timeout)
		defer scope.Cancel()
	}

	limiter := cfg.limiter
	if limiter == nil && cfg.maxConcurrency > 0 {
		limiter = concurrency.NewCapacityLimiter(cfg.maxConcurrency)
	}

	results := make([]BatchResult, len(requests))
	group, _ := concurrency.NewTaskGroup(ctx)

	for i, req := range requests {
		i, req := i, req
		group.StartSoon(func(childCtx context.Context) error {
			if limiter != nil {
				release, err := limiter.Acquire(childCtx)
				if err != nil {
					err = c.translateTimeout(scope, err)
					if cfg.raiseOnError {
						return err
					}
					results[i] = BatchResult{Err: err}
					return nil
				}
				defer release()
			}

			data, err := c.Request(childCtx, req.Data, req.Options...)
			if err != nil {
				err = c.translateTimeout(scope, err)
				if cfg.raiseOnError {
					return err
				}
				results[i] = BatchResult{Err: err}
				return nil
			}
			results[i] = BatchResult{Data: data}
			return nil
		})
	}

	waitErr := group.Wait()

	// The batch-level deadline wraps the whole task-group scope: when it
	// fires, the batch as a whole timed out regardless of the per-index
	// error-trapping mode.
	if scope != nil && scope.Fired() {
		err := concurrency.TranslateDeadline(scope, context.DeadlineExceeded)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if waitErr != nil {
		telemetry.RecordError(span, waitErr)
		return nil, waitErr
	}
	return results, nil
}
