package nodes

import (
	"context"
	"time"

	"github.com/pulsely/flowengine/pkg/schema"
)

// DelayHandler executes delay nodes: suspend the run for config.duration
// milliseconds, produce no output and no cost. The sleep honors context
// cancellation so an embedding application can tear the run down.
type DelayHandler struct{}

// NewDelayHandler creates a delay node handler.
func NewDelayHandler() *DelayHandler { return &DelayHandler{} }

func (h *DelayHandler) Type() schema.NodeType { return schema.NodeTypeDelay }

func (h *DelayHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	ms := intParam(req.Config(), "duration", 0)
	if ms < 0 {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "delay node has negative duration %d", ms).
			WithNode(req.Node.NodeKey)
	}
	if ms == 0 {
		return &Result{}, nil
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return &Result{}, nil
	case <-ctx.Done():
		return nil, schema.NewError(schema.ErrCodeExecution, "delay interrupted").
			WithNode(req.Node.NodeKey).WithCause(ctx.Err())
	}
}
