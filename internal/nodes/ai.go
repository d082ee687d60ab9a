package nodes

import (
	"context"

	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/internal/providers"
	"github.com/pulsely/flowengine/pkg/schema"
)

// configKeys consumed by the ai handler itself; everything else in the node
// config travels to the provider as task options.
var aiReservedKeys = map[string]bool{
	"aiType": true,
	"prompt": true,
}

// AIHandler executes ai nodes by delegating to the model provider registered
// for the node's aiType. The prompt is interpolated against the resolved
// input bag before the call; the provider-reported cost is surfaced for
// budget accounting.
type AIHandler struct {
	models *providers.ModelRegistry
}

// NewAIHandler creates an ai node handler backed by the given registry.
func NewAIHandler(models *providers.ModelRegistry) *AIHandler {
	return &AIHandler{models: models}
}

func (h *AIHandler) Type() schema.NodeType { return schema.NodeTypeAI }

func (h *AIHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config()

	aiType := schema.AIType(stringParam(cfg, "aiType", ""))
	switch aiType {
	case schema.AITypeTextGeneration, schema.AITypeImageGeneration,
		schema.AITypeVideoGeneration, schema.AITypeWebScraping:
	case "":
		return nil, schema.NewError(schema.ErrCodeConfig, "ai node missing required config field aiType").
			WithNode(req.Node.NodeKey)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unsupported ai type %q", aiType).
			WithNode(req.Node.NodeKey)
	}

	provider, err := h.models.Get(aiType)
	if err != nil {
		return nil, err
	}

	prompt := expressions.Interpolate(stringParam(cfg, "prompt", ""), req.Inputs)

	options := make(map[string]any, len(cfg))
	for k, v := range cfg {
		if !aiReservedKeys[k] {
			options[k] = v
		}
	}

	resp, err := provider.Invoke(ctx, providers.ModelRequest{
		Kind:    aiType,
		Prompt:  prompt,
		Options: options,
	})
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeProvider, "ai call failed: %s", err.Error()).
			WithNode(req.Node.NodeKey).WithCause(err)
	}

	return &Result{Output: resp.Output, Cost: resp.Cost}, nil
}
