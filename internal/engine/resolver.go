package engine

import (
	"github.com/pulsely/flowengine/pkg/schema"
)

// ResolveInputs builds the plain key/value bag a node executes against from
// its declared input references.
//
// A reference to a node that has not produced a value contributes nothing:
// the default mode skips it silently, which tolerates partial graphs (a
// failed-but-tolerated upstream node) at the price of masking authoring
// mistakes. Strict mode turns the missing binding into a configuration
// error without changing default behavior.
//
// With an outputKey the value is nested under that key; otherwise an object
// value is shallow-merged into the bag (later references win on collision)
// and a non-object value lands under its own nodeKey.
func ResolveInputs(node *schema.WorkflowNode, ectx *ExecutionContext, strict bool) (map[string]any, error) {
	bag := make(map[string]any)

	for _, ref := range node.Inputs {
		val, ok := ectx.Variable(ref.NodeKey)
		if !ok {
			if strict {
				return nil, schema.NewErrorf(schema.ErrCodeConfig,
					"input %q has no value (strict inputs mode)", ref.NodeKey).
					WithNode(node.NodeKey)
			}
			continue
		}

		if ref.OutputKey != "" {
			bag[ref.OutputKey] = val
			continue
		}

		if m, isMap := val.(map[string]any); isMap {
			for k, v := range m {
				bag[k] = v
			}
			continue
		}

		bag[ref.NodeKey] = val
	}

	return bag, nil
}
