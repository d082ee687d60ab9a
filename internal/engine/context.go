package engine

import (
	"time"

	"github.com/pulsely/flowengine/pkg/schema"
)

// ExecutionContext holds all mutable state of one workflow run: variable
// bindings, accumulated cost, and the budget clocks. Created at the start of
// Execute, owned exclusively by that run, discarded at the end. Single
// writer, never shared between concurrent runs, so it carries no lock.
type ExecutionContext struct {
	ExecutionID string
	WorkflowID  string
	UserID      string
	TriggerData map[string]any // immutable for the run

	variables map[string]any // nodeKey -> last output
	order     []string       // insertion order = execution order

	totalCost float64
	maxCost   float64
	timeout   time.Duration
	startTime time.Time
}

// NewExecutionContext builds a fresh context for one run of the definition.
func NewExecutionContext(def *schema.WorkflowDefinition, trigger map[string]any, executionID, userID string) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  def.ID,
		UserID:      userID,
		TriggerData: trigger,
		variables:   make(map[string]any),
		maxCost:     def.MaxCostPerRun,
		timeout:     time.Duration(def.TimeoutSeconds * float64(time.Second)),
		startTime:   time.Now(),
	}
}

// SetVariable stores a node's output under its nodeKey, making it visible to
// downstream nodes. Keys are unique; the map grows monotonically.
func (c *ExecutionContext) SetVariable(nodeKey string, value any) {
	if _, exists := c.variables[nodeKey]; !exists {
		c.order = append(c.order, nodeKey)
	}
	c.variables[nodeKey] = value
}

// Variable looks up an upstream node's output by nodeKey.
func (c *ExecutionContext) Variable(nodeKey string) (any, bool) {
	v, ok := c.variables[nodeKey]
	return v, ok
}

// ExecutedKeys returns the node keys with stored outputs, in execution order.
func (c *ExecutionContext) ExecutedKeys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// AddCost accumulates a node's reported cost. totalCost is monotone
// non-decreasing; negative contributions are ignored.
func (c *ExecutionContext) AddCost(cost float64) {
	if cost > 0 {
		c.totalCost += cost
	}
}

// TotalCost returns the cost accumulated so far.
func (c *ExecutionContext) TotalCost() float64 {
	return c.totalCost
}

// Elapsed returns wall-clock time since the run started.
func (c *ExecutionContext) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// CheckBudget enforces the two run ceilings at a node boundary, cost first,
// then wall clock. Enforcement is cooperative: a node in flight cannot be
// preempted, so a single expensive node can overshoot before the next check.
func (c *ExecutionContext) CheckBudget() *schema.FlowError {
	if c.totalCost > c.maxCost {
		return schema.NewErrorf(schema.ErrCodeCostLimit,
			"cost limit exceeded: %.4f > %.4f", c.totalCost, c.maxCost).
			WithDetails(map[string]any{"total_cost": c.totalCost, "max_cost_per_run": c.maxCost})
	}
	if elapsed := c.Elapsed(); elapsed > c.timeout {
		return schema.NewErrorf(schema.ErrCodeTimeout,
			"workflow timeout exceeded: %s > %s", elapsed.Round(time.Millisecond), c.timeout).
			WithDetails(map[string]any{"elapsed_ms": elapsed.Milliseconds(), "timeout_ms": c.timeout.Milliseconds()})
	}
	return nil
}
