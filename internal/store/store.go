// Package store provides the optional run-history recorder: one row per
// workflow run plus an append-only per-node event log, backed by libSQL.
// The engine treats recording as best-effort; a recording failure never
// fails a run.
package store

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pulsely/flowengine/pkg/schema"
)

// Node event types.
const (
	EventNodeStarted   = "node_started"
	EventNodeSucceeded = "node_succeeded"
	EventNodeFailed    = "node_failed"
	EventNodeRetried   = "node_retried"
)

// RunRecord is the persisted snapshot of one workflow run.
type RunRecord struct {
	ExecutionID   string          `json:"execution_id"`
	WorkflowID    string          `json:"workflow_id"`
	UserID        string          `json:"user_id,omitempty"`
	State         schema.RunState `json:"state"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	TotalCost     float64         `json:"total_cost"`
	DurationMs    int64           `json:"duration_ms"`
	NodesExecuted int             `json:"nodes_executed"`
	NodesFailed   int             `json:"nodes_failed"`
	TriggerData   json.RawMessage `json:"trigger_data,omitempty"`
	Output        json.RawMessage `json:"output,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// NodeEvent is one append-only entry in a run's node event log.
type NodeEvent struct {
	ID          int64           `json:"id"`
	ExecutionID string          `json:"execution_id"`
	NodeKey     string          `json:"node_key"`
	NodeType    schema.NodeType `json:"node_type"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Cost        float64         `json:"cost,omitempty"`
	DurationMs  int64           `json:"duration_ms,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RunRecorder is the engine's view of the run-history store.
// Satisfied by *LibSQLStore and test fakes.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
	AppendNodeEvent(ctx context.Context, event *NodeEvent) error
}

// RunFilter narrows ListRuns queries.
type RunFilter struct {
	WorkflowID string
	UserID     string
	State      schema.RunState
	Limit      int
}
