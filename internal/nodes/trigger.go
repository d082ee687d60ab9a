package nodes

import (
	"context"

	"github.com/pulsely/flowengine/pkg/schema"
)

// TriggerHandler executes trigger nodes: the sourceless entry points of a
// workflow. The node's output is the run's trigger payload, verbatim, so
// downstream nodes can bind to it like any other output.
type TriggerHandler struct{}

// NewTriggerHandler creates a trigger node handler.
func NewTriggerHandler() *TriggerHandler { return &TriggerHandler{} }

func (h *TriggerHandler) Type() schema.NodeType { return schema.NodeTypeTrigger }

func (h *TriggerHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	return &Result{Output: req.Trigger}, nil
}
