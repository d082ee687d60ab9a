// Package engine implements the workflow run driver: ordering, input
// resolution, budget enforcement and the per-node dispatch loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pulsely/flowengine/internal/logging"
	"github.com/pulsely/flowengine/internal/nodes"
	"github.com/pulsely/flowengine/internal/store"
	"github.com/pulsely/flowengine/internal/telemetry"
	"github.com/pulsely/flowengine/pkg/schema"
)

// Engine executes workflow definitions. It holds only immutable
// collaborators (registry, logger, recorder, metrics); all per-run state
// lives in an ExecutionContext, so one Engine serves concurrent runs.
type Engine struct {
	registry *nodes.Registry
	logger   *slog.Logger
	recorder store.RunRecorder
	metrics  *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder enables best-effort run history recording. A recording
// failure is logged, never surfaced to the run.
func WithRecorder(r store.RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine dispatching to the given node registry.
func New(registry *nodes.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.New(logging.NewCorrelationHandler(slog.Default().Handler())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runOptions holds per-run overrides.
type runOptions struct {
	executionID  string
	userID       string
	strictInputs bool
}

// RunOption configures a single Execute call.
type RunOption func(*runOptions)

// WithExecutionID pins the run's execution ID instead of generating one.
func WithExecutionID(id string) RunOption {
	return func(o *runOptions) { o.executionID = id }
}

// WithUserID attributes the run to a user.
func WithUserID(id string) RunOption {
	return func(o *runOptions) { o.userID = id }
}

// WithStrictInputs makes a dangling input reference a configuration error
// instead of a silently empty binding.
func WithStrictInputs() RunOption {
	return func(o *runOptions) { o.strictInputs = true }
}

// Execute runs one workflow to a terminal state and returns the outcome.
// It never returns an error and never lets a panic escape: every failure
// mode is folded into the returned ExecutionResult.
func (e *Engine) Execute(ctx context.Context, def *schema.WorkflowDefinition, trigger map[string]any, opts ...RunOption) (result *schema.ExecutionResult) {
	ro := runOptions{}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.executionID == "" {
		ro.executionID = uuid.NewString()
	}

	ctx = logging.WithExecutionID(ctx, ro.executionID)
	ctx = logging.WithWorkflowID(ctx, def.ID)

	startedAt := time.Now()
	ectx := NewExecutionContext(def, trigger, ro.executionID, ro.userID)

	var nodesExecuted, nodesFailed int
	var lastOutput any
	var abortErr error

	progress := func() runProgress {
		return runProgress{executed: nodesExecuted, failed: nodesFailed, output: lastOutput}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "panic during workflow execution", "panic", fmt.Sprint(r))
			result = e.finalize(ctx, def, ectx, trigger, schema.StateAbortedNodeFailure, startedAt, progress(),
				schema.NewErrorf(schema.ErrCodeExecution, "panic: %v", r))
		}
	}()

	e.logger.InfoContext(ctx, "workflow execution started",
		"workflow_name", def.Name, "node_count", len(def.Nodes))
	e.metrics.RunStarted()

	if len(def.TriggerNodes()) == 0 {
		return e.finalize(ctx, def, ectx, trigger, schema.StateAbortedNoTrigger, startedAt, progress(),
			schema.NewError(schema.ErrCodeNoTrigger, "workflow has no trigger node"))
	}

	order, err := Order(def)
	if err != nil {
		return e.finalize(ctx, def, ectx, trigger, schema.StateAbortedNodeFailure, startedAt, progress(), err)
	}

	for _, key := range order {
		node := def.NodeByKey(key)
		nodeCtx := logging.WithNodeKey(ctx, key)

		inputs, err := ResolveInputs(node, ectx, ro.strictInputs)
		if err != nil {
			nodesFailed++
			abortErr = err
			break
		}

		res, err := e.executeNode(nodeCtx, ectx, node, inputs, def.MaxRetries)
		if err != nil {
			nodesFailed++
			e.logger.WarnContext(nodeCtx, "node failed",
				"node_type", string(node.Type), "error", err.Error())

			if isFatalError(err) || !def.RetryOnFailure {
				abortErr = err
				break
			}
			// Tolerated failure: downstream nodes see no binding for this key.
		} else {
			ectx.AddCost(res.Cost)
			ectx.SetVariable(key, res.Output)
			nodesExecuted++
			lastOutput = res.Output
		}

		// Ceilings are checked after every node, recorded failures included.
		if budgetErr := ectx.CheckBudget(); budgetErr != nil {
			abortState := schema.StateAbortedCost
			if budgetErr.Code == schema.ErrCodeTimeout {
				abortState = schema.StateAbortedTimeout
			}
			return e.finalize(ctx, def, ectx, trigger, abortState, startedAt, progress(), budgetErr)
		}
	}

	finalState := schema.StateSucceeded
	if abortErr != nil {
		finalState = schema.StateAbortedNodeFailure
	}
	return e.finalize(ctx, def, ectx, trigger, finalState, startedAt, progress(), abortErr)
}

// runProgress carries the loop counters into finalize so partial progress
// lands in both the result and the persisted run record.
type runProgress struct {
	executed int
	failed   int
	output   any
}

// executeNode runs one node through its handler, re-attempting retryable
// failures up to maxRetries times with exponential backoff.
func (e *Engine) executeNode(ctx context.Context, ectx *ExecutionContext, node *schema.WorkflowNode, inputs map[string]any, maxRetries int) (*nodes.Result, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	handler, err := e.registry.Get(node.Type)
	if err != nil {
		e.recordNodeEvent(ctx, ectx, node, store.EventNodeFailed, err.Error(), 0, 0)
		return nil, err
	}

	req := nodes.Request{
		Node:    node,
		Inputs:  inputs,
		Trigger: ectx.TriggerData,
	}

	e.recordNodeEvent(ctx, ectx, node, store.EventNodeStarted, nil, 0, 0)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if waitErr := WaitForBackoff(ctx, ComputeBackoff(attempt-1)); waitErr != nil {
				break
			}
			e.metrics.NodeRetried()
			e.recordNodeEvent(ctx, ectx, node, store.EventNodeRetried,
				map[string]any{"attempt": attempt, "error": lastErr.Error()}, 0, 0)
			e.logger.InfoContext(ctx, "retrying node", "attempt", attempt)
		}

		start := time.Now()
		res, execErr := e.safeExecute(ctx, handler, req)
		elapsed := time.Since(start)

		if execErr == nil {
			e.metrics.NodeExecuted(string(node.Type), "succeeded", elapsed.Seconds())
			e.recordNodeEvent(ctx, ectx, node, store.EventNodeSucceeded, res.Output, res.Cost, elapsed.Milliseconds())
			e.logger.DebugContext(ctx, "node succeeded",
				"node_type", string(node.Type), "cost", res.Cost, "duration_ms", elapsed.Milliseconds())
			return res, nil
		}

		e.metrics.NodeExecuted(string(node.Type), "failed", elapsed.Seconds())
		lastErr = execErr

		if !IsRetryableError(execErr) {
			break
		}
	}

	e.recordNodeEvent(ctx, ectx, node, store.EventNodeFailed, lastErr.Error(), 0, 0)

	if maxRetries > 0 && IsRetryableError(lastErr) {
		return nil, schema.NewErrorf(schema.ErrCodeRetryExhausted,
			"node failed after %d attempts: %s", maxRetries+1, lastErr.Error()).
			WithNode(node.NodeKey).WithCause(lastErr)
	}
	return nil, lastErr
}

// safeExecute invokes the handler, converting a panic into an error so a
// misbehaving node is a node failure, not a crashed run.
func (e *Engine) safeExecute(ctx context.Context, handler nodes.Handler, req nodes.Request) (res *nodes.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = schema.NewErrorf(schema.ErrCodeExecution, "node panicked: %v", r).
				WithNode(req.Node.NodeKey)
		}
	}()
	return handler.Execute(ctx, req)
}

// finalize assembles the terminal ExecutionResult and flushes telemetry and
// run history.
func (e *Engine) finalize(ctx context.Context, def *schema.WorkflowDefinition, ectx *ExecutionContext, trigger map[string]any, state schema.RunState, startedAt time.Time, prog runProgress, runErr error) *schema.ExecutionResult {
	duration := time.Since(startedAt)
	result := &schema.ExecutionResult{
		Success:       state == schema.StateSucceeded,
		State:         state,
		Output:        prog.output,
		TotalCost:     ectx.TotalCost(),
		Duration:      duration,
		NodesExecuted: prog.executed,
		NodesFailed:   prog.failed,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	e.metrics.RunFinished(string(state), duration.Seconds(), result.TotalCost)

	if result.Success {
		e.logger.InfoContext(ctx, "workflow execution succeeded",
			"total_cost", result.TotalCost, "duration_ms", duration.Milliseconds())
	} else {
		e.logger.WarnContext(ctx, "workflow execution aborted",
			"state", string(state), "error", result.Error,
			"total_cost", result.TotalCost, "duration_ms", duration.Milliseconds())
	}

	e.recordRun(ctx, def, ectx, trigger, result, startedAt)
	return result
}

// recordRun persists the run snapshot if a recorder is wired. Best-effort:
// the run result is already final when this fires.
func (e *Engine) recordRun(ctx context.Context, def *schema.WorkflowDefinition, ectx *ExecutionContext, trigger map[string]any, result *schema.ExecutionResult, startedAt time.Time) {
	if e.recorder == nil {
		return
	}

	rec := &store.RunRecord{
		ExecutionID:   ectx.ExecutionID,
		WorkflowID:    def.ID,
		UserID:        ectx.UserID,
		State:         result.State,
		Success:       result.Success,
		Error:         result.Error,
		TotalCost:     result.TotalCost,
		DurationMs:    result.Duration.Milliseconds(),
		NodesExecuted: result.NodesExecuted,
		NodesFailed:   result.NodesFailed,
		StartedAt:     startedAt.UTC(),
		CompletedAt:   time.Now().UTC(),
	}
	if raw, err := json.Marshal(trigger); err == nil {
		rec.TriggerData = raw
	}
	if result.Output != nil {
		if raw, err := json.Marshal(result.Output); err == nil {
			rec.Output = raw
		}
	}

	if err := e.recorder.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.WarnContext(ctx, "failed to record run", "error", err.Error())
	}
}

// recordNodeEvent appends one node event if a recorder is wired.
func (e *Engine) recordNodeEvent(ctx context.Context, ectx *ExecutionContext, node *schema.WorkflowNode, eventType string, payload any, cost float64, durationMs int64) {
	if e.recorder == nil {
		return
	}

	event := &store.NodeEvent{
		ExecutionID: ectx.ExecutionID,
		NodeKey:     node.NodeKey,
		NodeType:    node.Type,
		Type:        eventType,
		Cost:        cost,
		DurationMs:  durationMs,
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			event.Payload = raw
		}
	}

	if err := e.recorder.AppendNodeEvent(context.WithoutCancel(ctx), event); err != nil {
		e.logger.WarnContext(ctx, "failed to record node event", "error", err.Error())
	}
}

// isFatalError reports whether a node failure must abort the run regardless
// of retryOnFailure.
func isFatalError(err error) bool {
	var flowErr *schema.FlowError
	if errors.As(err, &flowErr) {
		return flowErr.IsFatal()
	}
	return false
}
