package nodes

import (
	"context"

	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/pkg/schema"
)

// ConditionHandler executes condition nodes: config.condition is evaluated
// against the resolved input bag and the node's output is the boolean
// verdict. The default engine is expr; config.language = "cel" selects CEL,
// where the bag is exposed as the "inputs" variable.
type ConditionHandler struct {
	expr *expressions.ExprEngine
	cel  *expressions.CELEngine
}

// NewConditionHandler creates a condition node handler. cel may be nil, in
// which case config.language = "cel" is a configuration error.
func NewConditionHandler(expr *expressions.ExprEngine, cel *expressions.CELEngine) *ConditionHandler {
	return &ConditionHandler{expr: expr, cel: cel}
}

func (h *ConditionHandler) Type() schema.NodeType { return schema.NodeTypeCondition }

func (h *ConditionHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config()

	condition := stringParam(cfg, "condition", "")
	if condition == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "condition node missing required config field condition").
			WithNode(req.Node.NodeKey)
	}

	switch lang := stringParam(cfg, "language", "expr"); lang {
	case "expr":
		verdict, err := h.expr.EvaluateBool(ctx, condition, req.Inputs)
		if err != nil {
			return nil, err
		}
		return &Result{Output: verdict}, nil

	case "cel":
		if h.cel == nil {
			return nil, schema.NewError(schema.ErrCodeConfig, "cel condition language not available").
				WithNode(req.Node.NodeKey)
		}
		out, err := h.cel.Evaluate(ctx, condition, map[string]any{
			"inputs":  req.Inputs,
			"trigger": req.Trigger,
		})
		if err != nil {
			return nil, err
		}
		verdict, ok := out.(bool)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"condition %q evaluated to %T, expected bool", condition, out).
				WithNode(req.Node.NodeKey)
		}
		return &Result{Output: verdict}, nil

	default:
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "unknown condition language %q", lang).
			WithNode(req.Node.NodeKey)
	}
}
