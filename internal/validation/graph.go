package validation

import (
	"fmt"
	"sort"

	"github.com/pulsely/flowengine/pkg/schema"
)

// validateGraph performs graph analysis on the node graph: cycle detection
// (Kahn's algorithm) and trigger reachability (BFS over dependents).
// Unreachable nodes are warnings, not errors: the run loop skips them,
// which is documented behavior, but they are almost always authoring
// mistakes worth surfacing.
func validateGraph(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodeKeys := make(map[string]bool, len(def.Nodes))
	for _, n := range def.Nodes {
		nodeKeys[n.NodeKey] = true
	}

	// edges[key] = input dependencies, dependents[key] = downstream nodes.
	edges := make(map[string][]string, len(def.Nodes))
	dependents := make(map[string][]string, len(def.Nodes))

	for _, n := range def.Nodes {
		seen := make(map[string]bool, len(n.Inputs))
		for _, ref := range n.Inputs {
			if !nodeKeys[ref.NodeKey] || seen[ref.NodeKey] || ref.NodeKey == n.NodeKey {
				continue // invalid refs already caught by semantic
			}
			seen[ref.NodeKey] = true
			edges[n.NodeKey] = append(edges[n.NodeKey], ref.NodeKey)
			dependents[ref.NodeKey] = append(dependents[ref.NodeKey], n.NodeKey)
		}
	}

	// Kahn's algorithm for cycle detection.
	inDegree := make(map[string]int, len(def.Nodes))
	for key := range nodeKeys {
		inDegree[key] = len(edges[key])
	}

	queue := make([]string, 0, len(def.Nodes))
	for key, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, key)
		}
	}
	sort.Strings(queue)

	visited := 0
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[key] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(nodeKeys) {
		result.AddError("nodes", schema.ErrCodeCycleDetected, "workflow graph contains a cycle")
		return result // cycle makes reachability analysis meaningless
	}

	// Reachability: BFS from trigger nodes through dependents.
	reachable := make(map[string]bool, len(nodeKeys))
	var bfs []string
	for _, trig := range def.TriggerNodes() {
		if !reachable[trig.NodeKey] {
			reachable[trig.NodeKey] = true
			bfs = append(bfs, trig.NodeKey)
		}
	}
	for len(bfs) > 0 {
		key := bfs[0]
		bfs = bfs[1:]
		for _, dep := range dependents[key] {
			if !reachable[dep] {
				reachable[dep] = true
				bfs = append(bfs, dep)
			}
		}
	}

	var dead []string
	for key := range nodeKeys {
		if !reachable[key] {
			dead = append(dead, key)
		}
	}
	sort.Strings(dead)
	for _, key := range dead {
		result.AddWarning("nodes", schema.ErrCodeValidation,
			fmt.Sprintf("node %q is not reachable from any trigger and will never execute", key))
	}

	return result
}
