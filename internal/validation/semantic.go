package validation

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pulsely/flowengine/pkg/schema"
)

// validateSemantic performs semantic analysis on the workflow definition.
// Checks: unique node keys, trigger presence, reserved types, input
// references, per-type config requirements, cron schedule syntax.
func validateSemantic(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodeKeys := make(map[string]bool, len(def.Nodes))
	for i, n := range def.Nodes {
		if nodeKeys[n.NodeKey] {
			result.AddError(fmt.Sprintf("nodes[%d].node_key", i), schema.ErrCodeValidation,
				fmt.Sprintf("duplicate node key %q", n.NodeKey))
		}
		nodeKeys[n.NodeKey] = true
	}

	if triggers := def.TriggerNodes(); len(triggers) == 0 {
		result.AddError("nodes", schema.ErrCodeNoTrigger, "workflow has no trigger node")
	} else if len(triggers) > 1 {
		result.AddWarning("nodes", schema.ErrCodeValidation,
			fmt.Sprintf("workflow has %d trigger nodes; they execute in list order", len(triggers)))
	}

	for i := range def.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		validateNodeSemantic(&def.Nodes[i], path, nodeKeys, result)
	}

	if def.MaxRetries > 10 {
		result.AddWarning("max_retries", schema.ErrCodeValidation,
			fmt.Sprintf("high retry count (%d) may cause excessive delays", def.MaxRetries))
	}

	return result
}

// validateNodeSemantic checks a single node.
func validateNodeSemantic(node *schema.WorkflowNode, path string, nodeKeys map[string]bool, result *schema.ValidationResult) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	// Input references must point at existing, distinct nodes.
	for j, ref := range node.Inputs {
		refPath := fmt.Sprintf("%s.inputs[%d]", path, j)
		if ref.NodeKey == node.NodeKey {
			result.AddError(refPath, schema.ErrCodeValidation,
				fmt.Sprintf("node %q references itself as input", node.NodeKey))
			continue
		}
		if !nodeKeys[ref.NodeKey] {
			result.AddError(refPath, schema.ErrCodeValidation,
				fmt.Sprintf("references non-existent node %q", ref.NodeKey))
		}
	}

	switch node.Type {
	case schema.NodeTypeTrigger:
		if len(node.Inputs) > 0 {
			result.AddWarning(path+".inputs", schema.ErrCodeValidation,
				"trigger node inputs are ignored; triggers execute first")
		}
		if sched, ok := cfg["schedule"].(string); ok && sched != "" {
			if _, err := cron.ParseStandard(sched); err != nil {
				result.AddError(path+".config.schedule", schema.ErrCodeConfig,
					fmt.Sprintf("invalid cron schedule %q: %s", sched, err.Error()))
			}
		}

	case schema.NodeTypeAI:
		aiType, _ := cfg["aiType"].(string)
		switch schema.AIType(aiType) {
		case schema.AITypeTextGeneration, schema.AITypeImageGeneration,
			schema.AITypeVideoGeneration, schema.AITypeWebScraping:
		case "":
			result.AddError(path+".config.aiType", schema.ErrCodeConfig, "ai node requires config.aiType")
		default:
			result.AddError(path+".config.aiType", schema.ErrCodeConfig,
				fmt.Sprintf("unsupported aiType %q", aiType))
		}

	case schema.NodeTypeAgent:
		if name, _ := cfg["agentName"].(string); name == "" {
			result.AddError(path+".config.agentName", schema.ErrCodeConfig,
				"claude-agent node requires config.agentName")
		}
		if op, _ := cfg["operation"].(string); op == "" {
			result.AddError(path+".config.operation", schema.ErrCodeConfig,
				"claude-agent node requires config.operation")
		}

	case schema.NodeTypeAction:
		actionType, _ := cfg["actionType"].(string)
		switch schema.ActionType(actionType) {
		case schema.ActionWebhook:
			if url, _ := cfg["url"].(string); url == "" {
				result.AddError(path+".config.url", schema.ErrCodeConfig,
					"webhook action requires config.url")
			}
		case schema.ActionPostToSocial, schema.ActionSaveToDatabase, schema.ActionSendEmail:
		case "":
			result.AddError(path+".config.actionType", schema.ErrCodeConfig,
				"action node requires config.actionType")
		default:
			result.AddError(path+".config.actionType", schema.ErrCodeConfig,
				fmt.Sprintf("unsupported actionType %q", actionType))
		}

	case schema.NodeTypeTransform:
		transformType, _ := cfg["transformType"].(string)
		switch schema.TransformType(transformType) {
		case schema.TransformJQ:
			if expr, _ := cfg["expression"].(string); expr == "" {
				result.AddError(path+".config.expression", schema.ErrCodeConfig,
					"jq transform requires config.expression")
			}
		case schema.TransformMap, schema.TransformFilter, schema.TransformMerge, schema.TransformExtract:
		case "":
			// Missing transformType passes inputs through unchanged.
		default:
			result.AddWarning(path+".config.transformType", schema.ErrCodeConfig,
				fmt.Sprintf("unknown transformType %q passes inputs through unchanged", transformType))
		}

	case schema.NodeTypeCondition:
		if cond, _ := cfg["condition"].(string); cond == "" {
			result.AddError(path+".config.condition", schema.ErrCodeConfig,
				"condition node requires config.condition")
		}
		if lang, ok := cfg["language"].(string); ok && lang != "expr" && lang != "cel" {
			result.AddError(path+".config.language", schema.ErrCodeConfig,
				fmt.Sprintf("unsupported expression language %q", lang))
		}

	case schema.NodeTypeDelay:
		switch d := cfg["duration"].(type) {
		case nil:
		case float64:
			if d < 0 {
				result.AddError(path+".config.duration", schema.ErrCodeConfig,
					"delay duration must be non-negative")
			}
		case int:
			if d < 0 {
				result.AddError(path+".config.duration", schema.ErrCodeConfig,
					"delay duration must be non-negative")
			}
		}

	case schema.NodeTypeLoop, schema.NodeTypeBranch:
		result.AddError(path+".node_type", schema.ErrCodeValidation,
			fmt.Sprintf("node type %q is reserved and not yet executable", node.Type))

	default:
		result.AddError(path+".node_type", schema.ErrCodeValidation,
			fmt.Sprintf("unknown node type %q", node.Type))
	}
}
