package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/pkg/schema"
)

func newCondition(t *testing.T) *ConditionHandler {
	t.Helper()
	cel, err := expressions.NewCELEngine()
	require.NoError(t, err)
	return NewConditionHandler(expressions.NewExprEngine(), cel)
}

func TestCondition_ExprDefault(t *testing.T) {
	h := newCondition(t)

	res, err := h.Execute(context.Background(), Request{
		Node:   makeNode(schema.NodeTypeCondition, map[string]any{"condition": "score > 50"}),
		Inputs: map[string]any{"score": 80},
	})
	require.NoError(t, err)
	assert.Equal(t, true, res.Output)
	assert.Zero(t, res.Cost)
}

func TestCondition_ExprFalse(t *testing.T) {
	h := newCondition(t)

	res, err := h.Execute(context.Background(), Request{
		Node:   makeNode(schema.NodeTypeCondition, map[string]any{"condition": "score > 50"}),
		Inputs: map[string]any{"score": 10},
	})
	require.NoError(t, err)
	assert.Equal(t, false, res.Output)
}

func TestCondition_MissingBindingIsFalse(t *testing.T) {
	h := newCondition(t)

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeCondition, map[string]any{"condition": "missing"}),
	})
	require.NoError(t, err)
	assert.Equal(t, false, res.Output)
}

func TestCondition_CELLanguage(t *testing.T) {
	h := newCondition(t)

	res, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeCondition, map[string]any{
			"condition": `inputs.score > 50 && trigger.source == "api"`,
			"language":  "cel",
		}),
		Inputs:  map[string]any{"score": 80},
		Trigger: map[string]any{"source": "api"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, res.Output)
}

func TestCondition_CELNonBoolIsError(t *testing.T) {
	h := newCondition(t)

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeCondition, map[string]any{
			"condition": "1 + 1",
			"language":  "cel",
		}),
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, flowCode(t, err))
}

func TestCondition_CELUnavailable(t *testing.T) {
	h := NewConditionHandler(expressions.NewExprEngine(), nil)

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeCondition, map[string]any{
			"condition": "true",
			"language":  "cel",
		}),
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, flowCode(t, err))
}

func TestCondition_MissingCondition(t *testing.T) {
	h := newCondition(t)

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeCondition, map[string]any{}),
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, flowCode(t, err))
}

func TestCondition_UnknownLanguage(t *testing.T) {
	h := newCondition(t)

	_, err := h.Execute(context.Background(), Request{
		Node: makeNode(schema.NodeTypeCondition, map[string]any{
			"condition": "true",
			"language":  "prolog",
		}),
	})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConfig, flowCode(t, err))
}
