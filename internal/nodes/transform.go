package nodes

import (
	"context"
	"sort"

	"dario.cat/mergo"

	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/pkg/schema"
)

// TransformHandler executes transform nodes: pure data reshaping with no
// cost contribution.
//
//	map:     interpolates config.template per element of the input array
//	filter:  keeps elements for which config.condition evaluates true
//	merge:   shallow-merges all object inputs into one map
//	extract: projects config.fields out of the input bag
//	jq:      evaluates config.expression with jq against the input bag
//
// An unknown transformType returns the inputs unchanged.
type TransformHandler struct {
	conditions *expressions.ExprEngine
	jq         *expressions.GoJQEngine
}

// NewTransformHandler creates a transform node handler.
func NewTransformHandler(conditions *expressions.ExprEngine, jq *expressions.GoJQEngine) *TransformHandler {
	return &TransformHandler{conditions: conditions, jq: jq}
}

func (h *TransformHandler) Type() schema.NodeType { return schema.NodeTypeTransform }

func (h *TransformHandler) Execute(ctx context.Context, req Request) (*Result, error) {
	cfg := req.Config()

	switch schema.TransformType(stringParam(cfg, "transformType", "")) {
	case schema.TransformMap:
		return h.transformMap(cfg, req)
	case schema.TransformFilter:
		return h.transformFilter(ctx, cfg, req)
	case schema.TransformMerge:
		return h.transformMerge(req)
	case schema.TransformExtract:
		return h.transformExtract(cfg, req)
	case schema.TransformJQ:
		return h.transformJQ(ctx, cfg, req)
	default:
		return &Result{Output: req.Inputs}, nil
	}
}

// transformMap interpolates config.template once per element of the input
// array. Map elements act as the interpolation scope directly; scalar
// elements are exposed as {{item}}.
func (h *TransformHandler) transformMap(cfg map[string]any, req Request) (*Result, error) {
	template := stringParam(cfg, "template", "")
	items, err := h.inputArray(cfg, req)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		scope, ok := item.(map[string]any)
		if !ok {
			scope = map[string]any{"item": item}
		}
		out = append(out, expressions.Interpolate(template, scope))
	}
	return &Result{Output: out}, nil
}

// transformFilter evaluates config.condition per element, keeping elements
// where it holds. The element is the expression environment; scalar elements
// are exposed as "item".
func (h *TransformHandler) transformFilter(ctx context.Context, cfg map[string]any, req Request) (*Result, error) {
	condition := stringParam(cfg, "condition", "")
	if condition == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "filter transform missing required config field condition").
			WithNode(req.Node.NodeKey)
	}

	items, err := h.inputArray(cfg, req)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		scope, ok := item.(map[string]any)
		if !ok {
			scope = map[string]any{"item": item}
		}
		keep, err := h.conditions.EvaluateBool(ctx, condition, scope)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, item)
		}
	}
	return &Result{Output: out}, nil
}

// transformMerge shallow-merges all object-valued inputs into one map.
// Inputs merge in sorted key order, so on collision the value under the
// lexicographically last bag key wins, deterministically across runs.
func (h *TransformHandler) transformMerge(req Request) (*Result, error) {
	keys := make([]string, 0, len(req.Inputs))
	for k := range req.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make(map[string]any)
	for _, k := range keys {
		if m, ok := req.Inputs[k].(map[string]any); ok {
			if err := mergo.Merge(&merged, m, mergo.WithOverride); err != nil {
				return nil, schema.NewError(schema.ErrCodeExecution, "merge transform failed").
					WithNode(req.Node.NodeKey).WithCause(err)
			}
		}
	}
	// Top-level scalar inputs survive the merge under their own key.
	for _, k := range keys {
		if _, isMap := req.Inputs[k].(map[string]any); !isMap {
			merged[k] = req.Inputs[k]
		}
	}
	return &Result{Output: merged}, nil
}

// transformExtract projects the named fields out of the input bag.
// Missing fields are omitted, not errors.
func (h *TransformHandler) transformExtract(cfg map[string]any, req Request) (*Result, error) {
	fieldsRaw, ok := cfg["fields"]
	if !ok {
		return nil, schema.NewError(schema.ErrCodeConfig, "extract transform missing required config field fields").
			WithNode(req.Node.NodeKey)
	}

	var fields []string
	switch fv := fieldsRaw.(type) {
	case []string:
		fields = fv
	case []any:
		for _, f := range fv {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
	default:
		return nil, schema.NewError(schema.ErrCodeConfig, "extract transform fields must be a string array").
			WithNode(req.Node.NodeKey)
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := req.Inputs[f]; ok {
			out[f] = v
		}
	}
	return &Result{Output: out}, nil
}

// transformJQ evaluates a jq expression against the whole input bag.
func (h *TransformHandler) transformJQ(ctx context.Context, cfg map[string]any, req Request) (*Result, error) {
	expression := stringParam(cfg, "expression", "")
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeConfig, "jq transform missing required config field expression").
			WithNode(req.Node.NodeKey)
	}
	out, err := h.jq.Evaluate(ctx, expression, req.Inputs)
	if err != nil {
		return nil, err
	}
	return &Result{Output: out}, nil
}

// inputArray locates the array a map/filter transform operates on:
// config.field names the bag key (default "items"); when absent, the first
// array value found in the bag is used.
func (h *TransformHandler) inputArray(cfg map[string]any, req Request) ([]any, error) {
	field := stringParam(cfg, "field", "items")

	if v, ok := req.Inputs[field]; ok {
		if arr, ok := v.([]any); ok {
			return arr, nil
		}
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "input %q is not an array", field).
			WithNode(req.Node.NodeKey)
	}

	for _, v := range req.Inputs {
		if arr, ok := v.([]any); ok {
			return arr, nil
		}
	}
	return nil, nil
}
