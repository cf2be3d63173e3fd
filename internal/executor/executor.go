// Package executor runs an ordered, layered execution plan, threading a
// typed operation context between operations, dispatching independent
// operations in parallel, and enforcing per-operation timeouts and
// cancellation.
package executor

import (
	"context"
	"sync"
	"time"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/internal/contract"
	"github.com/heymumford/migrationcore/internal/provider"
)

// Handler performs one operation's work, reading prerequisites from opCtx
// via provider.Context.Result and calling out to the resilient caller
// internally; it returns the operation's payload or a categorized error.
type Handler func(ctx context.Context, opCtx *provider.Context) (any, error)

// Plan is the layered execution order produced by package graph's
// ParallelLayers, paired with the contract set it was built from.
type Plan struct {
	Layers    [][]string
	Contracts map[string]contract.OperationContract
}

// Executor dispatches a Plan's layers with a configurable per-run
// parallelism cap and per-operation timeout. Parallelism <= 0 means
// "unbounded within a layer": each layer dispatches all of its operations
// at once, since a fixed global number can't express "equal to layer
// width" before the plan's layers are known.
type Executor struct {
	Parallelism      int
	OperationTimeout time.Duration
}

// New constructs an Executor. A parallelism of 0 or less means unbounded
// per-layer concurrency rather than serialized dispatch.
func New(parallelism int, operationTimeout time.Duration) *Executor {
	return &Executor{Parallelism: parallelism, OperationTimeout: operationTimeout}
}

// runAbort signals that a required operation has failed and no further
// layers should be dispatched; already-started operations in the current
// layer are allowed to finish.
type runAbort struct {
	cause error
}

// Run dispatches plan's layers in order against handlers, publishing every
// operation's outcome to opCtx. It returns the final outcome map and a
// non-nil error only when the run ends failed or cancelled at the plan
// level (a required operation failed, or ctx was cancelled); per-item
// non-required failures are recorded in the outcome map without aborting.
func (e *Executor) Run(ctx context.Context, plan Plan, handlers map[string]Handler, opCtx *provider.Context) (map[string]provider.Outcome, error) {
	var abort *runAbort

	for _, layer := range plan.Layers {
		if ctx.Err() != nil {
			e.markRemainingCancelled(plan, opCtx, layer)
			return e.collectOutcomes(opCtx, plan), migerrors.Wrap(migerrors.Cancelled, "run cancelled before layer dispatch", ctx.Err())
		}
		if abort != nil {
			break
		}

		abort = e.runLayer(ctx, layer, handlers, opCtx, plan.Contracts)
	}

	if ctx.Err() != nil {
		return e.collectOutcomes(opCtx, plan), migerrors.Wrap(migerrors.Cancelled, "run cancelled", ctx.Err())
	}
	if abort != nil {
		return e.collectOutcomes(opCtx, plan), abort.cause
	}
	return e.collectOutcomes(opCtx, plan), nil
}

func (e *Executor) runLayer(ctx context.Context, layer []string, handlers map[string]Handler, opCtx *provider.Context, contracts map[string]contract.OperationContract) *runAbort {
	slots := e.Parallelism
	if slots <= 0 {
		slots = len(layer)
	}
	sem := make(chan struct{}, slots)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var abort *runAbort

	for _, opID := range layer {
		opID := opID
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := e.runOne(ctx, opID, handlers, opCtx)
			opCtx.Publish(opID, outcome)

			if outcome.Status == provider.StatusFailure {
				if c, ok := contracts[opID]; ok && c.Required {
					mu.Lock()
					if abort == nil {
						abort = &runAbort{cause: outcome.Err}
					}
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	return abort
}

func (e *Executor) runOne(ctx context.Context, opID string, handlers map[string]Handler, opCtx *provider.Context) provider.Outcome {
	started := time.Now()

	handler, ok := handlers[opID]
	if !ok {
		return provider.Outcome{
			OperationID: opID,
			Status:      provider.StatusFailure,
			Err:         migerrors.New(migerrors.DependencyMissing, "no handler registered for operation "+opID),
			StartedAt:   started,
			EndedAt:     time.Now(),
		}
	}

	opCtxTimeout := ctx
	var cancel context.CancelFunc
	if e.OperationTimeout > 0 {
		opCtxTimeout, cancel = context.WithTimeout(ctx, e.OperationTimeout)
		defer cancel()
	}

	data, err := handler(opCtxTimeout, opCtx)
	ended := time.Now()

	if err != nil {
		kind := migerrors.KindOf(err)
		if opCtxTimeout.Err() == context.DeadlineExceeded {
			kind = migerrors.Timeout
			err = migerrors.Wrap(migerrors.Timeout, "operation "+opID+" exceeded its deadline", err)
		} else if ctx.Err() != nil {
			kind = migerrors.Cancelled
		}
		me, _ := migerrors.As(err)
		if me == nil {
			me = migerrors.Wrap(kind, err.Error(), err)
		}
		status := provider.StatusFailure
		if kind == migerrors.Cancelled {
			status = provider.StatusCancelled
		}
		return provider.Outcome{
			OperationID: opID,
			Status:      status,
			Err:         me,
			StartedAt:   started,
			EndedAt:     ended,
		}
	}

	return provider.Outcome{
		OperationID: opID,
		Status:      provider.StatusSuccess,
		Data:        data,
		StartedAt:   started,
		EndedAt:     ended,
	}
}

func (e *Executor) markRemainingCancelled(plan Plan, opCtx *provider.Context, fromLayer []string) {
	seen := make(map[string]bool)
	mark := func(opID string) {
		if seen[opID] {
			return
		}
		seen[opID] = true
		if _, ok := opCtx.Outcome(opID); !ok {
			opCtx.Publish(opID, provider.Outcome{
				OperationID: opID,
				Status:      provider.StatusCancelled,
				Err:         migerrors.New(migerrors.Cancelled, "run cancelled"),
				StartedAt:   time.Now(),
				EndedAt:     time.Now(),
			})
		}
	}
	for _, opID := range fromLayer {
		mark(opID)
	}
}

func (e *Executor) collectOutcomes(opCtx *provider.Context, plan Plan) map[string]provider.Outcome {
	out := make(map[string]provider.Outcome)
	for _, layer := range plan.Layers {
		for _, opID := range layer {
			if outcome, ok := opCtx.Outcome(opID); ok {
				out[opID] = outcome
			} else {
				out[opID] = provider.Outcome{OperationID: opID, Status: provider.StatusSkipped}
			}
		}
	}
	return out
}
