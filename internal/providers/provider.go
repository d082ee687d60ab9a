// Package providers defines the contracts for the external collaborators the
// engine calls into but does not implement: AI model services and the agent
// runtime. Implementations are injected by the embedding application; tests
// use in-memory fakes.
package providers

import (
	"context"

	"github.com/pulsely/flowengine/pkg/schema"
)

// ModelRequest is the task-specific request passed to a model provider.
// Options carry free-form task settings (resolution, aspect_ratio, style,
// duration...) taken from the node config.
type ModelRequest struct {
	Kind    schema.AIType  `json:"kind"`
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options,omitempty"`
}

// ModelResponse is the provider's result: an output value plus the cost the
// provider reports for the call, accounted against the run's budget.
type ModelResponse struct {
	Output any     `json:"output"`
	Cost   float64 `json:"cost"`
}

// ModelProvider executes one class of AI task (text, image, video, scraping).
// A failing provider must return an error so the dispatcher can classify it
// as a node failure.
type ModelProvider interface {
	Invoke(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

// AgentRequest is the request passed to the agent runtime by claude-agent
// nodes. Params hold the merged node config and resolved inputs with every
// string value interpolated.
type AgentRequest struct {
	AgentName string         `json:"agent_name"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
}

// AgentResponse is the agent runtime's result.
type AgentResponse struct {
	Output any     `json:"output"`
	Cost   float64 `json:"cost"`
}

// AgentRunner executes named agent operations.
type AgentRunner interface {
	RunOperation(ctx context.Context, req AgentRequest) (*AgentResponse, error)
}

// ModelRegistry maps AI task kinds to their providers.
type ModelRegistry struct {
	providers map[schema.AIType]ModelProvider
}

// NewModelRegistry creates an empty ModelRegistry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		providers: make(map[schema.AIType]ModelProvider),
	}
}

// Register binds a provider to an AI task kind. Returns an error on rebind.
func (r *ModelRegistry) Register(kind schema.AIType, p ModelProvider) error {
	if p == nil {
		return schema.NewError(schema.ErrCodeValidation, "provider is nil")
	}
	if _, exists := r.providers[kind]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "provider for %q already registered", kind)
	}
	r.providers[kind] = p
	return nil
}

// Get retrieves the provider for an AI task kind.
func (r *ModelRegistry) Get(kind schema.AIType) (ModelProvider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "no provider registered for ai type %q", kind)
	}
	return p, nil
}
