// Package orchestrator drives a migration run end to end: it builds the
// combined dependency graph from provider contracts and orchestrator-
// injected glue operations, walks every selected item through fetch/map/
// create/upload/link, checkpoints progress after each item, and exposes the
// control surface (start_run, get_status, get_item_outcomes,
// get_dependency_visualization, cancel_run, resume_run, list_runs) the rest
// of this package's callers drive a run through.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/heymumford/migrationcore/infrastructure/logging"
	metricspkg "github.com/heymumford/migrationcore/infrastructure/metrics"
	"github.com/heymumford/migrationcore/internal/caller"
	"github.com/heymumford/migrationcore/internal/canonical"
	"github.com/heymumford/migrationcore/internal/checkpoint"
	"github.com/heymumford/migrationcore/internal/contract"
	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
	"github.com/heymumford/migrationcore/internal/executor"
	"github.com/heymumford/migrationcore/internal/graph"
	"github.com/heymumford/migrationcore/internal/provider"
	"github.com/heymumford/migrationcore/internal/runconfig"
	"github.com/heymumford/migrationcore/internal/session"
)

// Glue operation identifiers for the per-item pipeline. These have no
// provider contract of their own; the orchestrator registers them directly
// into the combined contract set used to build the per-item graph.
const (
	opFetchDetail       = "fetch_detail"
	opFetchAttachments  = "fetch_attachments"
	opMapToCanonical    = "map_to_canonical"
	opMapToTarget       = "map_to_target"
	opCreateTarget      = "create_target"
	opUploadAttachments = "upload_attachments"
	opCreateTraceLinks  = "create_trace_links"
)

// RunStatus is a run's lifecycle position.
type RunStatus string

const (
	RunRunning             RunStatus = "running"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
	RunCancelled           RunStatus = "cancelled"
)

// Report is the point-in-time status get_status and list_runs return.
type Report struct {
	RunID      string              `json:"runId"`
	Status     RunStatus           `json:"status"`
	Counters   checkpoint.Counters `json:"counters"`
	StartedAt  time.Time           `json:"startedAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
	FailureErr string              `json:"failureErr,omitempty"`
}

// Inputs bundles everything start_run needs beyond the flat option struct:
// the two provider adapters, the field mapper, and the explicit item
// selection the source adapter's enumeration resolved.
type Inputs struct {
	Source  provider.Adapter
	Target  provider.Adapter
	Mapper  canonical.FieldMapper
	ItemIDs []string
}

type run struct {
	mu         sync.Mutex
	id         string
	opts       runconfig.Options
	inputs     Inputs
	status     RunStatus
	counters   checkpoint.Counters
	startedAt  time.Time
	updatedAt  time.Time
	failureErr error
	outcomes   map[string]map[string]provider.Outcome // sourceID -> opID -> outcome
	graph      *graph.Graph
	plan       executor.Plan
	cancel     context.CancelFunc
}

// fieldDefsCache memoizes get_field_definitions once per run per provider,
// per Open Question 4's resolution.
type fieldDefsCache struct {
	mu   sync.Mutex
	data map[string]any
}

// Orchestrator owns every in-flight and completed run this process knows
// about, plus the shared collaborators every run's pipeline is built from.
type Orchestrator struct {
	registry *contract.Registry
	sessions *session.Manager
	caller   *caller.Caller
	store    checkpoint.Store
	metrics  *metricspkg.Metrics
	logger   *logging.Logger

	mu   sync.Mutex
	runs map[string]*run

	fieldDefs map[string]*fieldDefsCache // keyed by runID

	cron *cron.Cron
}

// New constructs an Orchestrator and starts its background cron schedule
// (checkpoint-header refresh and idle-session reaping), grounded on the
// teacher's pattern of a single process-wide cron.Cron driving periodic
// maintenance independent of request traffic.
func New(registry *contract.Registry, sessions *session.Manager, c *caller.Caller, store checkpoint.Store, m *metricspkg.Metrics, logger *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		sessions:  sessions,
		caller:    c,
		store:     store,
		metrics:   m,
		logger:    logger,
		runs:      make(map[string]*run),
		fieldDefs: make(map[string]*fieldDefsCache),
		cron:      cron.New(),
	}

	if _, err := o.cron.AddFunc("@every 5m", func() { o.reapIdleSessions() }); err != nil {
		o.logger.WithFields(map[string]any{}).WithError(err).Warn("failed to schedule session reaper")
	}
	if _, err := o.cron.AddFunc("@every 30s", func() { o.flushHeaders() }); err != nil {
		o.logger.WithFields(map[string]any{}).WithError(err).Warn("failed to schedule checkpoint flush tick")
	}
	o.cron.Start()
	return o
}

// Stop halts the background cron schedule.
func (o *Orchestrator) Stop() {
	o.cron.Stop()
}

func (o *Orchestrator) reapIdleSessions() {
	reaped := o.sessions.ReapIdle(time.Now().Add(-10 * time.Minute))
	if len(reaped) > 0 {
		o.logger.WithFields(map[string]any{"providers": reaped}).Info("reaped idle sessions")
	}
}

func (o *Orchestrator) flushHeaders() {
	o.mu.Lock()
	runs := make([]*run, 0, len(o.runs))
	for _, r := range o.runs {
		runs = append(runs, r)
	}
	o.mu.Unlock()

	for _, r := range runs {
		r.mu.Lock()
		if r.status != RunRunning {
			r.mu.Unlock()
			continue
		}
		header := checkpoint.RunHeader{
			RunID:     r.id,
			Counters:  r.counters,
			Status:    string(r.status),
			UpdatedAt: time.Now(),
		}
		r.mu.Unlock()
		if err := o.store.WriteHeader(context.Background(), header); err != nil {
			o.logger.WithFields(map[string]any{"run_id": r.id}).WithError(err).Warn("periodic checkpoint flush failed")
		}
	}
}

// glueContracts is the fixed per-item pipeline shape, identical for every
// run: fetch source detail and attachments, map source to canonical and
// canonical to target, create the target artifact, upload attachments, and
// link traces, in that dependency order.
func glueContracts() []contract.OperationContract {
	return []contract.OperationContract{
		{ID: opFetchDetail, Required: true},
		{ID: opFetchAttachments, DependsOn: []string{opFetchDetail}, Required: false},
		{ID: opMapToCanonical, DependsOn: []string{opFetchDetail}, Required: true},
		{ID: opMapToTarget, DependsOn: []string{opMapToCanonical}, Required: true},
		{ID: opCreateTarget, DependsOn: []string{opMapToTarget}, Required: true},
		{ID: opUploadAttachments, DependsOn: []string{opCreateTarget, opFetchAttachments}, Required: false},
		{ID: opCreateTraceLinks, DependsOn: []string{opCreateTarget}, Required: false},
	}
}

func buildGraph(contracts map[string]contract.OperationContract) *graph.Graph {
	g := graph.New()
	for id := range contracts {
		g.AddNode(id)
	}
	for id, c := range contracts {
		for _, dep := range c.DependsOn {
			g.AddEdge(dep, id)
		}
	}
	return g
}

// StartRun validates opts and inputs, builds the run's dependency graph, and
// launches the per-item pipeline in a background goroutine, returning the
// new run ID immediately.
func (o *Orchestrator) StartRun(ctx context.Context, opts runconfig.Options, inputs Inputs) (string, error) {
	runID := uuid.NewString()
	return o.startRun(ctx, runID, opts, inputs, nil)
}

// ResumeRun re-derives the set of items not yet recorded as succeeded in the
// checkpoint store for runID and relaunches the pipeline for the remainder,
// reusing runID rather than minting a new one.
func (o *Orchestrator) ResumeRun(ctx context.Context, runID string, opts runconfig.Options, inputs Inputs) (string, error) {
	done, err := checkpoint.CompletedSourceIDs(ctx, o.store, runID)
	if err != nil {
		return "", migerrors.Wrap(migerrors.Unknown, "resume_run: failed to read checkpoint", err)
	}
	remaining := make([]string, 0, len(inputs.ItemIDs))
	for _, id := range inputs.ItemIDs {
		if !done[id] {
			remaining = append(remaining, id)
		}
	}
	inputs.ItemIDs = remaining
	return o.startRun(ctx, runID, opts, inputs, done)
}

func (o *Orchestrator) startRun(ctx context.Context, runID string, opts runconfig.Options, inputs Inputs, carriedOver map[string]bool) (string, error) {
	combined := o.registry.Combined(opts.SourceProviderID, opts.TargetProviderID, glueContracts())
	if err := contract.Validate(combined); err != nil {
		return "", migerrors.Wrap(migerrors.ValidationFailed, "start_run: invalid contract set", err)
	}

	g := buildGraph(combined)
	if cyc, err := g.HasCycle(); cyc {
		return "", migerrors.Wrap(migerrors.ValidationFailed, "start_run: cyclic operation graph", err)
	}
	layers, err := g.ParallelLayers()
	if err != nil {
		return "", migerrors.Wrap(migerrors.ValidationFailed, "start_run: unable to layer operation graph", err)
	}

	o.caller.Configure(opts.SourceProviderID, opts)
	o.caller.Configure(opts.TargetProviderID, opts)

	runCtx, cancel := context.WithCancel(ctx)
	if d := opts.RunTimeout(); d > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, d)
	}
	runCtx = logging.WithRunID(runCtx, runID)

	r := &run{
		id:        runID,
		opts:      opts,
		inputs:    inputs,
		status:    RunRunning,
		startedAt: time.Now(),
		updatedAt: time.Now(),
		outcomes:  make(map[string]map[string]provider.Outcome),
		graph:     g,
		plan:      executor.Plan{Layers: layers, Contracts: combined},
		cancel:    cancel,
	}
	if carriedOver != nil {
		r.counters.Succeeded = len(carriedOver)
		r.counters.Total = len(carriedOver) + len(inputs.ItemIDs)
	} else {
		r.counters.Total = len(inputs.ItemIDs)
	}

	o.mu.Lock()
	o.runs[runID] = r
	o.fieldDefs[runID] = &fieldDefsCache{data: make(map[string]any)}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.RunsActive.Inc()
	}

	if err := o.store.WriteHeader(ctx, checkpoint.RunHeader{
		RunID: runID, Status: string(RunRunning), Counters: r.counters, UpdatedAt: time.Now(),
		ConfigSnapshot: map[string]any{
			"source_provider_id": opts.SourceProviderID,
			"target_provider_id": opts.TargetProviderID,
			"label":              opts.Label,
		},
	}); err != nil {
		cancel()
		return "", migerrors.Wrap(migerrors.Unknown, "start_run: failed to write initial checkpoint header", err)
	}

	go o.runLoop(runCtx, r)
	return runID, nil
}

// runLoop dispatches the run's items through a bounded worker pool sized by
// opts.ItemParallelism, mirroring the channel-as-counting-semaphore plus
// WaitGroup pattern the executor uses to bound concurrency within a layer.
// ctx is checked before each new item is handed a pool slot, so cancellation
// stops further items from ever starting; items already dispatched are
// allowed to finish (or observe ctx themselves and end cancelled).
func (o *Orchestrator) runLoop(ctx context.Context, r *run) {
	defer func() {
		if o.metrics != nil {
			o.metrics.RunsActive.Dec()
		}
	}()

	limit := r.opts.ItemParallelism
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	var failureMu sync.Mutex
	var firstRequiredFailure error
	recordFailure := func(err error) {
		failureMu.Lock()
		if firstRequiredFailure == nil {
			firstRequiredFailure = err
		}
		failureMu.Unlock()
	}

	for _, sourceID := range r.inputs.ItemIDs {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		sourceID := sourceID
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes, itemErr := o.runItem(ctx, r, sourceID)

			r.mu.Lock()
			r.outcomes[sourceID] = outcomes
			status := classifyItem(outcomes)
			r.updateCounters(status)
			r.updatedAt = time.Now()
			r.mu.Unlock()

			rec := checkpoint.ItemRecord{
				RunID: r.id, SourceID: sourceID, Status: string(status), FinishedAt: time.Now(),
			}
			if itemErr != nil {
				rec.ErrorKind = string(migerrors.KindOf(itemErr))
				recordFailure(itemErr)
			}
			if outcome, ok := outcomes[opCreateTarget]; ok && outcome.Status == provider.StatusSuccess {
				if id, ok := outcome.Data.(string); ok {
					rec.TargetID = id
				}
			}
			if err := o.store.AppendItem(ctx, rec); err != nil {
				o.logger.WithFields(map[string]any{"run_id": r.id, "source_id": sourceID}).WithError(err).Error("checkpoint append failed")
			}
			if o.metrics != nil {
				o.metrics.RunItemsTotal.WithLabelValues(r.id, string(status)).Inc()
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		o.finishRun(ctx, r, RunCancelled, ctx.Err())
		return
	}
	if firstRequiredFailure != nil && r.opts.CompensateOnAbort {
		o.compensate(ctx, r)
	}
	if firstRequiredFailure != nil {
		// Per-item required-operation failure is confined to that item; it
		// never escalates the whole run to RunFailed. RunFailed is reserved
		// for a run-level failure (plan/graph construction) that prevents
		// the per-item loop from running at all.
		o.finishRun(ctx, r, RunCompletedWithErrors, firstRequiredFailure)
		return
	}
	o.finishRun(ctx, r, RunCompleted, nil)
}

// classifyItem derives an item's terminal status from its glue-operation
// outcomes: success only if create_target succeeded; cancelled if any
// outcome was cancelled; failure otherwise.
func classifyItem(outcomes map[string]provider.Outcome) string {
	if o, ok := outcomes[opCreateTarget]; ok && o.Status == provider.StatusSuccess {
		return "success"
	}
	for _, o := range outcomes {
		if o.Status == provider.StatusCancelled {
			return "cancelled"
		}
	}
	return "failure"
}

func (r *run) updateCounters(status string) {
	switch status {
	case "success":
		r.counters.Succeeded++
	case "cancelled":
		r.counters.Cancelled++
	default:
		r.counters.Failed++
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, r *run, status RunStatus, cause error) {
	r.mu.Lock()
	r.status = status
	r.failureErr = cause
	r.updatedAt = time.Now()
	snapshot := r.counters
	r.mu.Unlock()

	if err := o.store.WriteHeader(context.Background(), checkpoint.RunHeader{
		RunID: r.id, Status: string(status), Counters: snapshot, UpdatedAt: time.Now(),
	}); err != nil {
		o.logger.WithFields(map[string]any{"run_id": r.id}).WithError(err).Error("final checkpoint flush failed")
	}
	o.logger.WithContext(ctx).WithFields(map[string]any{"status": status, "counters": snapshot}).Info("run finished")
}

// runItem drives one source item through the fixed glue-operation pipeline
// via the executor, idempotency-keying the create_target call on
// (source_provider_id, source_artifact_id, run_id) per the idempotency
// invariant.
func (o *Orchestrator) runItem(ctx context.Context, r *run, sourceID string) (map[string]provider.Outcome, error) {
	opCtx := provider.NewContext(r.id, r.inputs.Source, r.inputs.Target)
	opCtx.SetParam("source_id", sourceID)

	idempotencyKey := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s|%s|%s", r.opts.SourceProviderID, sourceID, r.id))).String()
	opCtx.SetParam("idempotency_key", idempotencyKey)

	handlers := map[string]executor.Handler{
		opFetchDetail:       o.handleFetchDetail(r),
		opFetchAttachments:  o.handleFetchAttachments(r),
		opMapToCanonical:    o.handleMapToCanonical(r),
		opMapToTarget:       o.handleMapToTarget(r),
		opCreateTarget:      o.handleCreateTarget(r),
		opUploadAttachments: o.handleUploadAttachments(r),
		opCreateTraceLinks:  o.handleCreateTraceLinks(r),
	}

	ex := executor.New(r.opts.OpParallelism, r.opts.OperationTimeout())
	outcomes, err := ex.Run(ctx, r.plan, handlers, opCtx)
	return outcomes, err
}

func (o *Orchestrator) handleFetchDetail(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		sourceID, _ := opCtx.Param("source_id")
		res, err := o.caller.Call(ctx, r.opts.SourceProviderID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
			data, err := r.inputs.Source.Invoke(ctx, "get_item_detail", map[string]any{"id": sourceID, "token": tok.AccessToken})
			return caller.Result{Data: data}, err
		})
		return res.Data, err
	}
}

func (o *Orchestrator) handleFetchAttachments(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		if !r.inputs.Source.Capabilities().SupportsAttachments {
			return nil, nil
		}
		sourceID, _ := opCtx.Param("source_id")
		res, err := o.caller.Call(ctx, r.opts.SourceProviderID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
			data, err := r.inputs.Source.Invoke(ctx, "get_attachments", map[string]any{"id": sourceID, "token": tok.AccessToken})
			return caller.Result{Data: data}, err
		})
		return res.Data, err
	}
}

func (o *Orchestrator) handleMapToCanonical(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		raw, err := opCtx.Result(opFetchDetail)
		if err != nil {
			return nil, err
		}
		art, err := r.inputs.Mapper.SourceToCanonical(r.opts.SourceProviderID, raw)
		if err != nil {
			return nil, migerrors.Wrap(migerrors.MappingError, "source to canonical mapping failed", err)
		}
		return art, nil
	}
}

func (o *Orchestrator) handleMapToTarget(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		raw, err := opCtx.Result(opMapToCanonical)
		if err != nil {
			return nil, err
		}
		art, ok := raw.(canonical.Artifact)
		if !ok {
			return nil, migerrors.New(migerrors.MappingError, "map_to_canonical did not produce a canonical.Artifact")
		}
		if err := o.ensureFieldDefinitions(ctx, r, r.opts.TargetProviderID); err != nil {
			return nil, err
		}
		payload, err := r.inputs.Mapper.CanonicalToTarget(r.opts.TargetProviderID, art)
		if err != nil {
			return nil, migerrors.Wrap(migerrors.MappingError, "canonical to target mapping failed", err)
		}
		return payload, nil
	}
}

func (o *Orchestrator) handleCreateTarget(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		payload, err := opCtx.Result(opMapToTarget)
		if err != nil {
			return nil, err
		}
		key, _ := opCtx.Param("idempotency_key")
		res, err := o.caller.Call(ctx, r.opts.TargetProviderID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
			data, err := r.inputs.Target.Invoke(ctx, "create_item", map[string]any{
				"payload":         payload,
				"idempotency_key": key,
				"token":           tok.AccessToken,
			})
			return caller.Result{Data: data}, err
		})
		return res.Data, err
	}
}

func (o *Orchestrator) handleUploadAttachments(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		if !r.inputs.Target.Capabilities().SupportsAttachments {
			return nil, nil
		}
		attachments, err := opCtx.Result(opFetchAttachments)
		if err != nil || attachments == nil {
			return nil, nil
		}
		targetID, err := opCtx.Result(opCreateTarget)
		if err != nil {
			return nil, err
		}
		res, err := o.caller.Call(ctx, r.opts.TargetProviderID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
			data, err := r.inputs.Target.Invoke(ctx, "upload_attachments", map[string]any{
				"target_id": targetID, "attachments": attachments, "token": tok.AccessToken,
			})
			return caller.Result{Data: data}, err
		})
		return res.Data, err
	}
}

func (o *Orchestrator) handleCreateTraceLinks(r *run) executor.Handler {
	return func(ctx context.Context, opCtx *provider.Context) (any, error) {
		targetID, err := opCtx.Result(opCreateTarget)
		if err != nil {
			return nil, err
		}
		sourceID, _ := opCtx.Param("source_id")
		res, err := o.caller.Call(ctx, r.opts.TargetProviderID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
			data, err := r.inputs.Target.Invoke(ctx, "create_trace_link", map[string]any{
				"target_id": targetID, "source_id": sourceID, "token": tok.AccessToken,
			})
			return caller.Result{Data: data}, err
		})
		return res.Data, err
	}
}

func (o *Orchestrator) ensureFieldDefinitions(ctx context.Context, r *run, providerID string) error {
	o.mu.Lock()
	cache := o.fieldDefs[r.id]
	o.mu.Unlock()
	if cache == nil {
		return nil
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if _, ok := cache.data[providerID]; ok {
		return nil
	}

	adapter := r.inputs.Target
	if providerID == r.opts.SourceProviderID {
		adapter = r.inputs.Source
	}
	res, err := o.caller.Call(ctx, providerID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
		data, err := adapter.Invoke(ctx, "get_field_definitions", map[string]any{"token": tok.AccessToken})
		return caller.Result{Data: data}, err
	})
	if err != nil {
		return err
	}
	cache.data[providerID] = res.Data
	return nil
}

// compensate deletes every target artifact created so far in a run in which
// at least one item failed a required operation, when compensate_on_abort is
// enabled. A cancelled run is not compensated: runLoop finishes it as
// cancelled without calling compensate.
func (o *Orchestrator) compensate(ctx context.Context, r *run) {
	r.mu.Lock()
	outcomes := make(map[string]map[string]provider.Outcome, len(r.outcomes))
	for k, v := range r.outcomes {
		outcomes[k] = v
	}
	r.mu.Unlock()

	for sourceID, byOp := range outcomes {
		created, ok := byOp[opCreateTarget]
		if !ok || created.Status != provider.StatusSuccess {
			continue
		}
		_, err := o.caller.Call(ctx, r.opts.TargetProviderID, func(ctx context.Context, tok session.Token) (caller.Result, error) {
			_, err := r.inputs.Target.Invoke(ctx, "delete_item", map[string]any{"target_id": created.Data, "token": tok.AccessToken})
			return caller.Result{}, err
		})
		if err != nil {
			o.logger.WithFields(map[string]any{"run_id": r.id, "source_id": sourceID}).WithError(err).Warn("compensating delete failed")
		}
	}
}

// GetStatus returns runID's current point-in-time report.
func (o *Orchestrator) GetStatus(runID string) (Report, error) {
	r, err := o.lookup(runID)
	if err != nil {
		return Report{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := Report{
		RunID: r.id, Status: r.status, Counters: r.counters,
		StartedAt: r.startedAt, UpdatedAt: r.updatedAt,
	}
	if r.failureErr != nil {
		rep.FailureErr = r.failureErr.Error()
	}
	return rep, nil
}

// GetItemOutcomes returns every per-item pipeline outcome recorded so far
// for runID, keyed by source artifact ID.
func (o *Orchestrator) GetItemOutcomes(runID string) (map[string]map[string]provider.Outcome, error) {
	r, err := o.lookup(runID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]provider.Outcome, len(r.outcomes))
	for k, v := range r.outcomes {
		out[k] = v
	}
	return out, nil
}

// GetDependencyVisualization returns runID's operation graph as a
// deterministic textual dump.
func (o *Orchestrator) GetDependencyVisualization(runID string) (string, error) {
	r, err := o.lookup(runID)
	if err != nil {
		return "", err
	}
	return r.graph.DebugRepr(), nil
}

// CancelRun requests cooperative cancellation of runID; already-started
// operations are allowed to finish, no new items are started.
func (o *Orchestrator) CancelRun(runID string) error {
	r, err := o.lookup(runID)
	if err != nil {
		return err
	}
	r.cancel()
	return nil
}

// ListRuns enumerates every run this process knows about and its current
// status, the SUPPLEMENT operation a reattaching client needs before it can
// call get_status.
func (o *Orchestrator) ListRuns() []Report {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Report, 0, len(o.runs))
	for _, r := range o.runs {
		r.mu.Lock()
		rep := Report{RunID: r.id, Status: r.status, Counters: r.counters, StartedAt: r.startedAt, UpdatedAt: r.updatedAt}
		r.mu.Unlock()
		out = append(out, rep)
	}
	return out
}

func (o *Orchestrator) lookup(runID string) (*run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.runs[runID]
	if !ok {
		return nil, migerrors.New(migerrors.NotFound, "no such run "+runID)
	}
	return r, nil
}
