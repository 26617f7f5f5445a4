package loader

import "fmt"

// Diagnostic is a validation error or warning produced while checking a
// pipeline definition.
type Diagnostic struct {
	Code     string `json:"code"`           // e.g. "PL-001"
	Severity string `json:"severity"`       // "error" or "warning"
	Message  string `json:"message"`        // human-readable description
	Path     string `json:"path,omitempty"` // JSON path to offending field
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// HasErrors returns true if any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Definition is the serializable form of a crisis pipeline. File loading
// and seeding both operate on this type; the executor never sees it, it
// reads the stored graph instead.
type Definition struct {
	ID    string    `json:"id" yaml:"id"`
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
	Nodes []NodeDef `json:"nodes" yaml:"nodes"`
	Edges []EdgeDef `json:"edges" yaml:"edges"`
}

// NodeDef is a serializable node within a Definition.
type NodeDef struct {
	ID       string         `json:"id" yaml:"id"`
	Key      string         `json:"key,omitempty" yaml:"key,omitempty"`
	Type     string         `json:"type" yaml:"type"`
	Label    string         `json:"label,omitempty" yaml:"label,omitempty"`
	Category string         `json:"category,omitempty" yaml:"category,omitempty"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// EdgeDef is a serializable edge within a Definition.
type EdgeDef struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Validate checks structural integrity of the Definition:
//   - PL-001: edge endpoints reference existing nodes
//   - PL-002: duplicate node IDs
//   - PL-003: empty node type
//   - PL-004: cycle among the nodes (warning; execution still totalizes
//     the order, but a cycle usually means a miswired canvas)
func (d *Definition) Validate() []Diagnostic {
	var diags []Diagnostic

	nodeIDs := make(map[string]bool, len(d.Nodes))
	for i, node := range d.Nodes {
		if nodeIDs[node.ID] {
			diags = append(diags, Diagnostic{
				Code:     "PL-002",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Duplicate node ID %q", node.ID),
				Path:     fmt.Sprintf("nodes[%d].id", i),
			})
		}
		nodeIDs[node.ID] = true

		if node.Type == "" {
			diags = append(diags, Diagnostic{
				Code:     "PL-003",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Node %q has no type", node.ID),
				Path:     fmt.Sprintf("nodes[%d].type", i),
			})
		}
	}

	for i, edge := range d.Edges {
		if !nodeIDs[edge.From] {
			diags = append(diags, Diagnostic{
				Code:     "PL-001",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Edge source %q references unknown node", edge.From),
				Path:     fmt.Sprintf("edges[%d].from", i),
			})
		}
		if !nodeIDs[edge.To] {
			diags = append(diags, Diagnostic{
				Code:     "PL-001",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Edge target %q references unknown node", edge.To),
				Path:     fmt.Sprintf("edges[%d].to", i),
			})
		}
	}

	if cycle := findCycle(d); cycle {
		diags = append(diags, Diagnostic{
			Code:     "PL-004",
			Severity: SeverityWarning,
			Message:  "Graph contains a cycle; nodes on it run in insertion order",
		})
	}

	return diags
}

// findCycle reports whether the definition's edges form a cycle, using
// the same in-degree drain as the scheduler.
func findCycle(d *Definition) bool {
	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = true
	}

	inDegree := make(map[string]int, len(d.Nodes))
	adjacent := make(map[string][]string)
	for _, e := range d.Edges {
		if !ids[e.From] || !ids[e.To] {
			continue
		}
		inDegree[e.To]++
		adjacent[e.From] = append(adjacent[e.From], e.To)
	}

	var queue []string
	for _, n := range d.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adjacent[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited < len(d.Nodes)
}

// DiagnosticError wraps validation diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []Diagnostic
}

func (e *DiagnosticError) Error() string {
	errs := Errors(e.Diagnostics)
	if len(errs) == 1 {
		return fmt.Sprintf("validation error: %s", errs[0].Message)
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(errs), errs[0].Message)
}
