package schema

import "time"

// RunState tags the terminal (or in-flight) state of a workflow run.
// The run driver is an explicit state machine over this closed set.
type RunState string

const (
	StateInitializing       RunState = "initializing"
	StateRunning            RunState = "running"
	StateSucceeded          RunState = "succeeded"
	StateAbortedCost        RunState = "aborted_cost"
	StateAbortedTimeout     RunState = "aborted_timeout"
	StateAbortedNoTrigger   RunState = "aborted_no_trigger"
	StateAbortedNodeFailure RunState = "aborted_node_failure"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case StateSucceeded, StateAbortedCost, StateAbortedTimeout,
		StateAbortedNoTrigger, StateAbortedNodeFailure:
		return true
	}
	return false
}

// ExecutionResult is the immutable snapshot returned to the caller at run
// completion or on abort. Partial progress (cost, counts, duration) is
// always visible, never discarded.
type ExecutionResult struct {
	Success       bool          `json:"success"`
	State         RunState      `json:"state"`
	Output        any           `json:"output,omitempty"` // the last executed node's result
	Error         string        `json:"error,omitempty"`  // present iff Success is false
	TotalCost     float64       `json:"total_cost"`
	Duration      time.Duration `json:"duration"`
	NodesExecuted int           `json:"nodes_executed"`
	NodesFailed   int           `json:"nodes_failed"`
}
