// Package nodes implements the per-type execution strategies the dispatcher
// routes workflow nodes to.
package nodes

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/pulsely/flowengine/pkg/schema"
)

// Request is the data handed to a node handler at execution time.
type Request struct {
	Node    *schema.WorkflowNode
	Inputs  map[string]any // resolved upstream input bag
	Trigger map[string]any // the run's trigger payload
}

// Result is the outcome of one node execution. Cost is accounted against the
// run budget by the driver.
type Result struct {
	Output any
	Cost   float64
}

// Handler executes one node type.
type Handler interface {
	Type() schema.NodeType
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Config reads the node's config map, tolerating a nil map.
func (r Request) Config() map[string]any {
	if r.Node == nil || r.Node.Config == nil {
		return map[string]any{}
	}
	return r.Node.Config
}

// Param helpers shared by the handler files.

func stringParam(m map[string]any, key, defaultVal string) string {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

func intParam(m map[string]any, key string, defaultVal int) int {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return defaultVal
		}
		return int(i)
	default:
		return defaultVal
	}
}
