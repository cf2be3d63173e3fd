// Package bulkhead caps concurrent in-flight calls per provider.
// Implemented with golang.org/x/sync/semaphore.Weighted, grounded on the
// pack's adoption of golang.org/x/sync for concurrency primitives
// (giantswarm-muster and theRebelliousNerd-codenerd use the sibling
// singleflight package from the same module for analogous coordination).
package bulkhead

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
)

// Config shapes one provider's concurrency gate.
type Config struct {
	MaxConcurrent int
}

// DefaultConfig matches the run-configuration default.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 10}
}

// Bulkhead is a per-provider counting semaphore with an overall wait
// timeout. Safe for concurrent use.
type Bulkhead struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// New constructs a Bulkhead from cfg with the given overall wait timeout.
func New(cfg Config, waitTimeout time.Duration) *Bulkhead {
	n := cfg.MaxConcurrent
	if n < 1 {
		n = 1
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(n)), timeout: waitTimeout}
}

// Release represents an acquired slot; callers must call it exactly once.
type Release func()

// Acquire blocks until a slot is free, ctx is cancelled, or the overall
// wait timeout elapses (surfacing bulkhead_timeout). On success it returns
// a Release func that must be called to give the slot back.
func (b *Bulkhead) Acquire(ctx context.Context) (Release, error) {
	waitCtx := ctx
	var cancel context.CancelFunc
	if b.timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, migerrors.Wrap(migerrors.Cancelled, "bulkhead wait cancelled", ctx.Err())
		}
		return nil, migerrors.Wrap(migerrors.BulkheadTimeout, "bulkhead wait timed out", err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		b.sem.Release(1)
	}, nil
}
