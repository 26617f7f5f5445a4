package executor

import "github.com/crisis-labs/crisisflow/core"

// Schedule computes the execution order for a version's graph using
// Kahn's algorithm. Ties among zero-in-degree nodes break by node
// insertion order; duplicate edges are counted, not deduplicated.
//
// When a cycle leaves nodes undrained, they are appended in insertion
// order after the sorted prefix, so every node id appears exactly once
// and no node is silently dropped from execution.
func Schedule(nodes []core.Node, edges []core.Edge) []string {
	inDegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if _, ok := inDegree[e.ToNode]; !ok {
			continue // edge into an unknown node; defensive, store may lag
		}
		inDegree[e.ToNode]++
		successors[e.FromNode] = append(successors[e.FromNode], e.ToNode)
	}

	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	order := make([]string, 0, len(nodes))
	scheduled := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if scheduled[id] {
			continue
		}
		order = append(order, id)
		scheduled[id] = true
		for _, succ := range successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	// Cycle remainder: keep insertion order so the result is total.
	if len(order) < len(nodes) {
		for _, n := range nodes {
			if !scheduled[n.ID] {
				order = append(order, n.ID)
				scheduled[n.ID] = true
			}
		}
	}

	return order
}
