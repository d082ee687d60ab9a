package expressions

import "context"

// Engine evaluates expressions within workflow nodes.
// Three implementations: Expr (default condition/filter logic),
// CEL (alternate condition language), GoJQ (jq transforms).
// Condition strings are never routed through a general-purpose code
// execution path; every engine is a sandboxed evaluator.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
