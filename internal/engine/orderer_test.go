package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsely/flowengine/pkg/schema"
)

func node(key string, nodeType schema.NodeType, inputs ...string) schema.WorkflowNode {
	n := schema.WorkflowNode{ID: key, NodeKey: key, Type: nodeType}
	for _, in := range inputs {
		n.Inputs = append(n.Inputs, schema.NodeInputRef{NodeKey: in})
	}
	return n
}

func defOf(nodes ...schema.WorkflowNode) *schema.WorkflowDefinition {
	return &schema.WorkflowDefinition{ID: "wf-1", Nodes: nodes}
}

func TestOrder_LinearChain(t *testing.T) {
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t"),
		node("b", schema.NodeTypeTransform, "a"),
	)

	order, err := Order(def)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "a", "b"}, order)
}

func TestOrder_InputsAlwaysPrecede(t *testing.T) {
	// Diamond: t -> a, t -> b, c depends on both.
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t"),
		node("b", schema.NodeTypeTransform, "t"),
		node("c", schema.NodeTypeTransform, "a", "b"),
	)

	order, err := Order(def)
	require.NoError(t, err)

	pos := map[string]int{}
	for i, k := range order {
		pos[k] = i
	}
	assert.Less(t, pos["t"], pos["a"])
	assert.Less(t, pos["t"], pos["b"])
	assert.Less(t, pos["a"], pos["c"])
	assert.Less(t, pos["b"], pos["c"])
	assert.Len(t, order, 4)
}

func TestOrder_Deterministic(t *testing.T) {
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t"),
		node("b", schema.NodeTypeTransform, "t"),
		node("c", schema.NodeTypeTransform, "a", "b"),
	)

	first, err := Order(def)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Order(def)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOrder_UnreachableNodesExcluded(t *testing.T) {
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t"),
		node("orphan", schema.NodeTypeTransform),
	)

	order, err := Order(def)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "a"}, order)
	assert.NotContains(t, order, "orphan")
}

func TestOrder_MultipleTriggersInListOrder(t *testing.T) {
	def := defOf(
		node("t1", schema.NodeTypeTrigger),
		node("t2", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t1"),
		node("b", schema.NodeTypeTransform, "t2"),
	)

	order, err := Order(def)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "a", "t2", "b"}, order)
}

func TestOrder_CycleIsError(t *testing.T) {
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t", "b"),
		node("b", schema.NodeTypeTransform, "a"),
	)

	_, err := Order(def)
	require.Error(t, err)

	var flowErr *schema.FlowError
	require.True(t, errors.As(err, &flowErr))
	assert.Equal(t, schema.ErrCodeCycleDetected, flowErr.Code)
}

func TestOrder_UnreachableCycleIgnored(t *testing.T) {
	// The cycle exists only among nodes no trigger can reach.
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t"),
		node("x", schema.NodeTypeTransform, "y"),
		node("y", schema.NodeTypeTransform, "x"),
	)

	order, err := Order(def)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "a"}, order)
}

func TestOrder_NoTriggers(t *testing.T) {
	def := defOf(
		node("a", schema.NodeTypeTransform),
	)

	order, err := Order(def)
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestOrder_DanglingInputRefIgnored(t *testing.T) {
	def := defOf(
		node("t", schema.NodeTypeTrigger),
		node("a", schema.NodeTypeTransform, "t", "ghost"),
	)

	order, err := Order(def)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "a"}, order)
}
