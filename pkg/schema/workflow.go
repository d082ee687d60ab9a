package schema

// WorkflowDefinition is the JSON-serializable workflow format: the static
// node graph plus the run policy. Definitions are supplied by the caller per
// invocation and never mutated by the engine.
type WorkflowDefinition struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	Nodes          []WorkflowNode `json:"nodes"`
	MaxCostPerRun  float64        `json:"max_cost_per_run,omitempty"` // hard currency ceiling, 0 = no paid nodes
	TimeoutSeconds float64        `json:"timeout_seconds,omitempty"`  // hard wall-clock ceiling, 0 = aborts at the first boundary check
	RetryOnFailure bool           `json:"retry_on_failure,omitempty"` // false: first node failure aborts the run
	MaxRetries     int            `json:"max_retries,omitempty"`      // bounded per-node re-attempts (0 = none)
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// WorkflowNode describes one executable step in a workflow graph.
type WorkflowNode struct {
	ID      string         `json:"id"`
	NodeKey string         `json:"node_key"` // unique binding name; the only cross-node addressing mechanism
	Type    NodeType       `json:"node_type"`
	Config  map[string]any `json:"config,omitempty"`
	Inputs  []NodeInputRef `json:"inputs,omitempty"`
	Outputs []NodeInputRef `json:"outputs,omitempty"` // informational; execution order is driven by inputs
}

// NodeInputRef is a reference to an upstream node's output.
type NodeInputRef struct {
	NodeKey   string `json:"node_key"`
	OutputKey string `json:"output_key,omitempty"` // when set, the value is nested under this key
}

// NodeType enumerates the kinds of nodes in a workflow.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAI        NodeType = "ai"
	NodeTypeAgent     NodeType = "claude-agent"
	NodeTypeAction    NodeType = "action"
	NodeTypeTransform NodeType = "transform"
	NodeTypeCondition NodeType = "condition"
	NodeTypeDelay     NodeType = "delay"

	// Reserved types: accepted by the wire format, rejected at validation
	// and execution until implemented.
	NodeTypeLoop   NodeType = "loop"
	NodeTypeBranch NodeType = "branch"
)

// AIType enumerates the model tasks an ai node can delegate.
type AIType string

const (
	AITypeTextGeneration  AIType = "text-generation"
	AITypeImageGeneration AIType = "image-generation"
	AITypeVideoGeneration AIType = "video-generation"
	AITypeWebScraping     AIType = "web-scraping"
)

// ActionType enumerates the delivery targets of an action node.
type ActionType string

const (
	ActionPostToSocial   ActionType = "post-to-social"
	ActionSaveToDatabase ActionType = "save-to-database"
	ActionSendEmail      ActionType = "send-email"
	ActionWebhook        ActionType = "webhook"
)

// TransformType enumerates the data reshaping operations of a transform node.
type TransformType string

const (
	TransformMap     TransformType = "map"
	TransformFilter  TransformType = "filter"
	TransformMerge   TransformType = "merge"
	TransformExtract TransformType = "extract"
	TransformJQ      TransformType = "jq"
)

// TriggerNodes returns the nodes with trigger type, in list order.
func (d *WorkflowDefinition) TriggerNodes() []*WorkflowNode {
	var triggers []*WorkflowNode
	for i := range d.Nodes {
		if d.Nodes[i].Type == NodeTypeTrigger {
			triggers = append(triggers, &d.Nodes[i])
		}
	}
	return triggers
}

// NodeByKey returns the node with the given nodeKey, or nil.
func (d *WorkflowDefinition) NodeByKey(key string) *WorkflowNode {
	for i := range d.Nodes {
		if d.Nodes[i].NodeKey == key {
			return &d.Nodes[i]
		}
	}
	return nil
}
