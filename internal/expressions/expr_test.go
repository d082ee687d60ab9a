package expressions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsely/flowengine/pkg/schema"
)

func TestExprEngine_ImplementsEngine(t *testing.T) {
	var _ Engine = (*ExprEngine)(nil)
}

func TestExprEngine_Name(t *testing.T) {
	assert.Equal(t, "expr", NewExprEngine().Name())
}

func TestExpr_Comparison(t *testing.T) {
	e := NewExprEngine()

	out, err := e.Evaluate(context.Background(), "count > 3", map[string]any{"count": 5})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestExpr_BooleanOperators(t *testing.T) {
	e := NewExprEngine()

	out, err := e.Evaluate(context.Background(), "a && !b", map[string]any{"a": true, "b": false})
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestExpr_ArrayHelpers(t *testing.T) {
	e := NewExprEngine()
	data := map[string]any{"items": []any{1, 2, 3, 4}}

	out, err := e.Evaluate(context.Background(), "filter(items, # > 2)", data)
	require.NoError(t, err)
	assert.Equal(t, []any{3, 4}, out)
}

func TestExpr_NilCoalescing(t *testing.T) {
	e := NewExprEngine()

	out, err := e.Evaluate(context.Background(), `missing ?? "fallback"`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestExpr_UndefinedVariableIsNil(t *testing.T) {
	e := NewExprEngine()

	out, err := e.Evaluate(context.Background(), "missing", map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestExpr_EmptyExpression(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), "", map[string]any{})
	require.Error(t, err)

	var flowErr *schema.FlowError
	require.True(t, errors.As(err, &flowErr))
	assert.Equal(t, schema.ErrCodeValidation, flowErr.Code)
}

func TestExpr_CompileErrorCode(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), "1 +", map[string]any{})
	require.Error(t, err)

	var flowErr *schema.FlowError
	require.True(t, errors.As(err, &flowErr))
	assert.Equal(t, schema.ErrCodeValidation, flowErr.Code)
}

func TestExpr_NilData(t *testing.T) {
	e := NewExprEngine()

	out, err := e.Evaluate(context.Background(), "1 + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
}

// --- EvaluateBool ---

func TestExpr_EvaluateBool_True(t *testing.T) {
	e := NewExprEngine()

	ok, err := e.EvaluateBool(context.Background(), "x == 1", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpr_EvaluateBool_NilIsFalse(t *testing.T) {
	e := NewExprEngine()

	ok, err := e.EvaluateBool(context.Background(), "missing", map[string]any{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpr_EvaluateBool_NonBoolIsError(t *testing.T) {
	e := NewExprEngine()

	_, err := e.EvaluateBool(context.Background(), "1 + 1", map[string]any{})
	require.Error(t, err)

	var flowErr *schema.FlowError
	require.True(t, errors.As(err, &flowErr))
	assert.Equal(t, schema.ErrCodeValidation, flowErr.Code)
}

// --- Caching ---

func TestExpr_CacheReuse(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), "x > 1", map[string]any{"x": 2})
	require.NoError(t, err)

	e.mu.RLock()
	_, cached := e.cache["x > 1"]
	e.mu.RUnlock()
	assert.True(t, cached)
}

func TestExpr_ConcurrentEvaluation(t *testing.T) {
	e := NewExprEngine()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Evaluate(context.Background(), "x * 2", map[string]any{"x": 21})
			assert.NoError(t, err)
			assert.Equal(t, 42, out)
		}()
	}
	wg.Wait()
}
