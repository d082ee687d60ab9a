package engine

import (
	"github.com/pulsely/flowengine/pkg/schema"
)

// Order computes the execution order for a workflow: a sequence of node keys
// in which every node appears after all nodes it declares as inputs.
//
// Only nodes forward-reachable from a trigger are ordered; a node with no
// path from any trigger is never executed and never counted. Multiple
// triggers are traversed in list order, with keys already placed by an
// earlier trigger's traversal skipped.
//
// A cycle among reachable nodes is a configuration error: the traversal
// colors nodes gray while on the stack and reports the offending edge.
func Order(def *schema.WorkflowDefinition) ([]string, error) {
	byKey := make(map[string]*schema.WorkflowNode, len(def.Nodes))
	for i := range def.Nodes {
		byKey[def.Nodes[i].NodeKey] = &def.Nodes[i]
	}

	// Forward adjacency: an input edge Y -> X means X depends on Y.
	dependents := make(map[string][]string, len(def.Nodes))
	for i := range def.Nodes {
		node := &def.Nodes[i]
		for _, ref := range node.Inputs {
			if _, ok := byKey[ref.NodeKey]; ok {
				dependents[ref.NodeKey] = append(dependents[ref.NodeKey], node.NodeKey)
			}
		}
	}

	// Forward closure from every trigger.
	reachable := make(map[string]bool, len(def.Nodes))
	var queue []string
	for _, trig := range def.TriggerNodes() {
		if !reachable[trig.NodeKey] {
			reachable[trig.NodeKey] = true
			queue = append(queue, trig.NodeKey)
		}
	}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[key] {
			if !reachable[dep] {
				reachable[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(def.Nodes))
	order := make([]string, 0, len(def.Nodes))

	// Inputs-first post-order placement.
	var place func(key string) error
	place = func(key string) error {
		if !reachable[key] {
			return nil
		}
		switch color[key] {
		case black:
			return nil
		case gray:
			return schema.NewErrorf(schema.ErrCodeCycleDetected,
				"workflow graph contains a cycle through node %q", key).WithNode(key)
		}
		color[key] = gray
		for _, ref := range byKey[key].Inputs {
			if _, ok := byKey[ref.NodeKey]; ok {
				if err := place(ref.NodeKey); err != nil {
					return err
				}
			}
		}
		color[key] = black
		order = append(order, key)
		return nil
	}

	// Depth-first walk over dependents so emission tracks the graph flow
	// from each trigger.
	walked := make(map[string]bool, len(def.Nodes))
	var walk func(key string) error
	walk = func(key string) error {
		if walked[key] {
			return nil
		}
		walked[key] = true
		if err := place(key); err != nil {
			return err
		}
		for _, dep := range dependents[key] {
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, trig := range def.TriggerNodes() {
		if err := walk(trig.NodeKey); err != nil {
			return nil, err
		}
	}

	return order, nil
}
