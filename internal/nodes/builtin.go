package nodes

import (
	"github.com/pulsely/flowengine/internal/expressions"
	"github.com/pulsely/flowengine/internal/providers"
)

// RegisterBuiltins registers the full node strategy table in the registry.
// cel may be nil; runner may be nil when no agent runtime is wired.
func RegisterBuiltins(reg *Registry, models *providers.ModelRegistry, runner providers.AgentRunner,
	exprEngine *expressions.ExprEngine, cel *expressions.CELEngine, jq *expressions.GoJQEngine,
	httpCfg HTTPConfig) error {

	all := []Handler{
		NewTriggerHandler(),
		NewAIHandler(models),
		NewAgentHandler(runner),
		NewActionHandler(httpCfg),
		NewTransformHandler(exprEngine, jq),
		NewConditionHandler(exprEngine, cel),
		NewDelayHandler(),
	}

	for _, h := range all {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
