// Package advisory defines the external language-service collaborator the
// BDI crisis manager consults: one call to plan which subordinate tools to
// run, and one call to summarize the assembled case into a final decision.
// Both calls are best-effort. Implementations signal degradation through
// ErrUnavailable and ErrMalformedResponse so the orchestrator can pick its
// fallback path explicitly instead of relying on empty values.
package advisory

import (
	"context"
	"errors"

	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/store"
)

var (
	// ErrUnavailable means the service cannot be reached at all, for
	// example because no credentials are configured. Never terminal.
	ErrUnavailable = errors.New("advisory service unavailable")

	// ErrMalformedResponse means the service answered but the payload
	// could not be interpreted as a plan. Never terminal.
	ErrMalformedResponse = errors.New("malformed advisory response")
)

// ToolDescriptor describes one agent/tool node wired to a BDI node,
// as presented to the planner.
type ToolDescriptor struct {
	ID          string         `json:"id"`
	Key         string         `json:"key"`
	Type        string         `json:"type"`
	Label       string         `json:"label,omitempty"`
	Category    string         `json:"category,omitempty"`
	Description string         `json:"description,omitempty"`
	ToolID      string         `json:"toolId,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	ToolMeta    *store.Tool    `json:"toolMetadata,omitempty"`
}

// OutputCandidate is a downstream node that can carry the final decision.
type OutputCandidate struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

// PlanStep is one planned tool invocation.
type PlanStep struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Type string `json:"type"`
}

// PlanFinal carries the planner's choice of output node, if any.
type PlanFinal struct {
	OutputNodeID string `json:"outputNodeId,omitempty"`
}

// Plan is the planner's answer: which tools to run, in which order, and
// where the decision should land.
type Plan struct {
	Tools []PlanStep `json:"tools"`
	Final PlanFinal  `json:"final"`
}

// Planner is the advisory language service consumed by the BDI node.
// Both operations are stateless and independent.
type Planner interface {
	// PlanTools asks which of the discovered tools to invoke and in what
	// order. Returns ErrUnavailable or ErrMalformedResponse on degradation.
	PlanTools(ctx context.Context, order core.OrderContext, tools []ToolDescriptor, outputs []OutputCandidate) (Plan, error)

	// Summarize turns the case snapshot into a natural-language decision.
	// An empty result or ErrUnavailable triggers the deterministic fallback.
	Summarize(ctx context.Context, snapshot string) (string, error)
}
