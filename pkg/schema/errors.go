package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeConfig         = "CONFIG_ERROR"
	ErrCodeNoTrigger      = "NO_TRIGGER"
	ErrCodeCycleDetected  = "CYCLE_DETECTED"
	ErrCodeNodeFailed     = "NODE_FAILED"
	ErrCodeProvider       = "PROVIDER_ERROR"
	ErrCodeCostLimit      = "COST_LIMIT_EXCEEDED"
	ErrCodeTimeout        = "TIMEOUT_EXCEEDED"
	ErrCodeExecution      = "EXECUTION_ERROR"
	ErrCodeInterpolation  = "INTERPOLATION_ERROR"
	ErrCodeRetryExhausted = "RETRY_EXHAUSTED"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeStore          = "STORE_ERROR"
)

// FlowError is the structured error type for all engine operations.
type FlowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeKey string         `json:"node_key,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FlowError) Error() string {
	if e.NodeKey != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeKey, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FlowError.
func NewError(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

// NewErrorf creates a new FlowError with a formatted message.
func NewErrorf(code, format string, args ...any) *FlowError {
	return &FlowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node key to the error.
func (e *FlowError) WithNode(nodeKey string) *FlowError {
	e.NodeKey = nodeKey
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowError) WithDetails(details map[string]any) *FlowError {
	e.Details = details
	return e
}

// IsFatal reports whether the error must abort a run regardless of the
// workflow's retryOnFailure policy: configuration errors and budget
// ceilings are never tolerable.
func (e *FlowError) IsFatal() bool {
	switch e.Code {
	case ErrCodeConfig, ErrCodeValidation, ErrCodeNoTrigger,
		ErrCodeCycleDetected, ErrCodeCostLimit, ErrCodeTimeout:
		return true
	}
	return false
}

// IsRetryable reports whether a per-node retry may re-attempt this error.
// Configuration and budget errors are never retryable; provider and
// execution errors are.
func (e *FlowError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeProvider, ErrCodeExecution, ErrCodeNodeFailed:
		return true
	}
	return false
}
