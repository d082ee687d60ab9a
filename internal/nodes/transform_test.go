package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/pkg/schema"
)

func newTransform() *TransformHandler {
	return NewTransformHandler(expressions.NewExprEngine(), expressions.NewGoJQEngine())
}

func TestTransform_Map(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "map",
			"template":      "Hi {{name}}",
		}),
		Inputs: map[string]any{"items": []any{
			map[string]any{"name": "ada"},
			map[string]any{"name": "grace"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"Hi ada", "Hi grace"}, res.Output)
}

func TestTransform_Map_ScalarElementsAsItem(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "map",
			"template":      "#{{item}}",
		}),
		Inputs: map[string]any{"items": []any{1, 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"#1", "#2"}, res.Output)
}

func TestTransform_Filter(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "filter",
			"condition":     "score > 50",
		}),
		Inputs: map[string]any{"items": []any{
			map[string]any{"name": "a", "score": 80},
			map[string]any{"name": "b", "score": 30},
		}},
	})
	require.NoError(t, err)
	out, ok := res.Output.([]any)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].(map[string]any)["name"])
}

func TestTransform_Filter_MissingCondition(t *testing.T) {
	h := newTransform()

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "filter",
		}),
		Inputs: map[string]any{"items": []any{1}},
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, flowCode(t, err))
}

func TestTransform_Merge(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "merge",
		}),
		Inputs: map[string]any{
			"a":      map[string]any{"x": 1},
			"b":      map[string]any{"y": 2},
			"scalar": "kept",
		},
	})
	require.NoError(t, err)
	out, ok := res.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, out["x"])
	assert.Equal(t, 2, out["y"])
	assert.Equal(t, "kept", out["scalar"])
}

func TestTransform_Merge_CollisionIsDeterministic(t *testing.T) {
	h := newTransform()

	// Both bags set the same nested key. The bag under the
	// lexicographically last key must win on every run.
	for i := 0; i < 20; i++ {
		res, err := h.Execute(context.Background(), Request{
			Node: makeNode(schema.NodeTypeTransform, map[string]any{
				"transformType": "merge",
			}),
			Inputs: map[string]any{
				"a": map[string]any{"v": 1},
				"b": map[string]any{"v": 2},
				"c": map[string]any{"v": 3},
			},
		})
		require.NoError(t, err)
		out, ok := res.Output.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 3, out["v"])
	}
}

func TestTransform_Extract(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "extract",
			"fields":        []any{"title", "missing"},
		}),
		Inputs: map[string]any{"title": "T", "body": "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "T"}, res.Output)
}

func TestTransform_Extract_MissingFields(t *testing.T) {
	h := newTransform()

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "extract",
		}),
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, flowCode(t, err))
}

func TestTransform_JQ(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "jq",
			"expression":    "{total: (.items | length)}",
		}),
		Inputs: map[string]any{"items": []any{1, 2, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"total": 3}, res.Output)
}

func TestTransform_JQ_MissingExpression(t *testing.T) {
	h := newTransform()

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "jq",
		}),
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, flowCode(t, err))
}

func TestTransform_UnknownTypePassesThrough(t *testing.T) {
	h := newTransform()
	inputs := map[string]any{"a": 1}

	res, err := h.Execute(context.Background(), Request{
		Node:   makeNode(schema.NodeTypeTransform, map[string]any{"transformType": "reverse"}),
		Inputs: inputs,
	})
	require.NoError(t, err)
	assert.Equal(t, inputs, res.Output)
}

func TestTransform_CustomArrayField(t *testing.T) {
	h := newTransform()

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "map",
			"template":      "{{item}}",
			"field":         "posts",
		}),
		Inputs: map[string]any{"posts": []any{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, res.Output)
}

func TestTransform_NonArrayFieldIsError(t *testing.T) {
	h := newTransform()

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeTransform, map[string]any{
			"transformType": "map",
			"template":      "{{item}}",
		}),
		Inputs: map[string]any{"items": "not an array"},
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExecution, flowCode(t, err))
}
