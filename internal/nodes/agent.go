package nodes

import (
	"context"

	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/internal/providers"
	"github.com/pulsely/flowengine/pkg/schema"
)

// AgentHandler executes claude-agent nodes through the agent runtime.
// agentName and operation are required config; their absence is a fatal
// configuration error. The agent receives the node config merged with the
// resolved inputs, every string value interpolated. Cost counts only on
// success.
type AgentHandler struct {
	runner providers.AgentRunner
}

// NewAgentHandler creates a claude-agent node handler.
func NewAgentHandler(runner providers.AgentRunner) *AgentHandler {
	return &AgentHandler{runner: runner}
}

func (h *AgentHandler) Type() schema.NodeType { return schema.NodeTypeAgent }

func (h *AgentHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config()

	agentName := stringParam(cfg, "agentName", "")
	operation := stringParam(cfg, "operation", "")
	if agentName == "" || operation == "" {
		return nil, schema.NewError(schema.ErrCodeConfig,
			"claude-agent node requires config fields agentName and operation").
			WithNode(req.Node.NodeKey)
	}

	if h.runner == nil {
		return nil, schema.NewError(schema.ErrCodeConfig, "no agent runner configured").
			WithNode(req.Node.NodeKey)
	}

	// Config first, resolved inputs override on key collision.
	merged := make(map[string]any, len(cfg)+len(req.Inputs))
	for k, v := range cfg {
		merged[k] = v
	}
	for k, v := range req.Inputs {
		merged[k] = v
	}
	params := expressions.InterpolateStrings(merged, req.Inputs)
	delete(params, "agentName")
	delete(params, "operation")

	resp, err := h.runner.RunOperation(ctx, providers.AgentRequest{
		AgentName: agentName,
		Operation: operation,
		Params:    params,
	})
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeProvider,
			"agent %s operation %s failed: %s", agentName, operation, err.Error()).
			WithNode(req.Node.NodeKey).WithCause(err)
	}

	return &Result{Output: resp.Output, Cost: resp.Cost}, nil
}
