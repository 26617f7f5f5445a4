package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crisis-labs/crisisflow/advisory"
	"github.com/crisis-labs/crisisflow/agents"
	"github.com/crisis-labs/crisisflow/core"
)

// bdiFallbackPrefix opens the deterministic plan text used when the
// advisory language service could not produce a summary.
const bdiFallbackPrefix = "The crisis manager assembled a plan from its subordinate agents. " +
	"The advisory language service is unavailable; falling back to the raw case digest.\n\n"

// runBDI is the crisis-manager orchestration. It never fails the run:
// every degradation inside it is logged, recorded on the output, and
// compensated with a deterministic fallback.
//
// Phases: discover the agent tools and output candidates wired to this
// node, ask the advisory planner for an invocation order, execute the
// planned steps against the shared case state, compute consensus, and
// summarize the case into the plan text downstream nodes will publish.
func (e *Executor) runBDI(ctx context.Context, r *run, node core.Node) BDIOutput {
	st := r.state

	tools := e.discoverTools(ctx, r, node)
	outputs := discoverOutputs(r, node)

	plan := e.planTools(ctx, r, node, tools, outputs)

	for _, step := range plan.Tools {
		e.executeStep(r, node, step, tools)
	}

	consensus := agents.ConsensusScore(st.votes(), agents.DefaultConsensusThreshold)

	out := BDIOutput{
		Beliefs: st.order,
		Desires: Desires{
			MinimizeDelay:   true,
			MinimizePenalty: st.order.PenaltyCost > 0,
			ProtectVIP:      st.order.IsVIP,
		},
		Tools:           tools,
		PlannedSteps:    plan.Tools,
		Supply:          st.supplyOptions,
		Logistics:       st.logistics,
		Finance:         st.finance,
		CustomerService: st.customer,
		Consensus:       &consensus,
	}

	// Priority is reported from whatever capability the toolset offered:
	// the full scheduler when one was wired, otherwise the base formula.
	if hasToolType(tools, core.NodeTypePriority) && len(st.priorityQueue) > 0 {
		out.Priority = st.priorityScore
		out.PriorityQueue = st.priorityQueue
	} else {
		out.Priority = agents.BasePriority(st.order)
	}

	out.PlanText = e.summarize(ctx, r, node, out, consensus)
	out.OutputNodeID = validateOutputChoice(plan.Final.OutputNodeID, outputs)

	st.planText = out.PlanText
	st.planOutputNodeID = out.OutputNodeID
	return out
}

// discoverTools collects the agent/tool nodes adjacent to the BDI node,
// outgoing neighbors first, then incoming, deduplicated by node id.
func (e *Executor) discoverTools(ctx context.Context, r *run, node core.Node) []advisory.ToolDescriptor {
	var tools []advisory.ToolDescriptor
	seen := make(map[string]bool)

	collect := func(neighborID string) {
		if seen[neighborID] {
			return
		}
		neighbor, ok := r.nodes[neighborID]
		if !ok {
			return
		}
		nodeType := core.ParseNodeType(neighbor.Type)
		if !nodeType.IsAgentTool() {
			return
		}
		seen[neighborID] = true

		desc := advisory.ToolDescriptor{
			ID:       neighbor.ID,
			Key:      neighbor.Key,
			Type:     neighbor.Type,
			Label:    neighbor.Label,
			Category: neighbor.Category,
			Config:   neighbor.Config,
		}
		if s, ok := neighbor.Config["description"].(string); ok {
			desc.Description = s
		}
		if toolID, ok := neighbor.Config["toolId"].(string); ok && toolID != "" {
			desc.ToolID = toolID
			if e.tools != nil {
				meta, err := e.tools.GetTool(ctx, toolID)
				if err != nil {
					e.logger.Warn("tool lookup failed",
						"node", neighbor.ID, "tool", toolID, "error", err)
				} else {
					desc.ToolMeta = &meta
				}
			}
		}
		tools = append(tools, desc)
	}

	for _, edge := range r.outgoing[node.ID] {
		collect(edge.ToNode)
	}
	for _, edge := range r.incoming[node.ID] {
		collect(edge.FromNode)
	}
	return tools
}

// discoverOutputs collects downstream nodes able to carry the final
// decision: action and output-response neighbors on outgoing edges.
func discoverOutputs(r *run, node core.Node) []advisory.OutputCandidate {
	var outputs []advisory.OutputCandidate
	seen := make(map[string]bool)
	for _, edge := range r.outgoing[node.ID] {
		if seen[edge.ToNode] {
			continue
		}
		neighbor, ok := r.nodes[edge.ToNode]
		if !ok {
			continue
		}
		if !core.ParseNodeType(neighbor.Type).IsOutput() {
			continue
		}
		seen[edge.ToNode] = true
		outputs = append(outputs, advisory.OutputCandidate{
			ID:    neighbor.ID,
			Key:   neighbor.Key,
			Type:  neighbor.Type,
			Label: neighbor.Label,
		})
	}
	return outputs
}

// planTools asks the advisory planner for a tool order. With no tools
// discovered the plan is empty. On planner failure the discovered tools
// are ordered by the fixed heuristic instead.
func (e *Executor) planTools(ctx context.Context, r *run, node core.Node, tools []advisory.ToolDescriptor, outputs []advisory.OutputCandidate) advisory.Plan {
	if len(tools) == 0 {
		return advisory.Plan{}
	}
	if e.advisory == nil {
		return heuristicPlan(tools)
	}

	start := e.now()
	e.emit(r, NewEvent(EventAdvisoryCall, r.id).
		WithNode(node.ID, core.NodeTypeBDICrisis).
		WithPayload("operation", "plan").
		WithPayload("tools", len(tools)))

	plan, err := e.advisory.PlanTools(ctx, r.state.order, tools, outputs)
	elapsed := e.now().Sub(start)
	if err != nil {
		e.logger.Warn("advisory planning failed, using heuristic order",
			"node", node.ID, "error", err)
		e.emit(r, NewEvent(EventAdvisoryResult, r.id).
			WithNode(node.ID, core.NodeTypeBDICrisis).
			WithElapsed(elapsed).
			WithPayload("operation", "plan").
			WithPayload("fallback", true).
			WithPayload("error", err.Error()))
		return heuristicPlan(tools)
	}
	e.emit(r, NewEvent(EventAdvisoryResult, r.id).
		WithNode(node.ID, core.NodeTypeBDICrisis).
		WithElapsed(elapsed).
		WithPayload("operation", "plan").
		WithPayload("steps", len(plan.Tools)))
	return plan
}

// heuristicPlan orders the discovered tools by fixed crisis triage rank:
// scheduling first, then supply, finance, logistics, customer service,
// consensus last. Only discovered tools appear in the plan.
func heuristicPlan(tools []advisory.ToolDescriptor) advisory.Plan {
	rank := map[core.NodeType]int{
		core.NodeTypePriority:        0,
		core.NodeTypeSupplyAgent:     1,
		core.NodeTypeFinanceAgent:    2,
		core.NodeTypeLogisticsAgent:  3,
		core.NodeTypeCustomerService: 4,
		core.NodeTypeConsensus:       5,
	}
	ordered := make([]advisory.ToolDescriptor, 0, len(tools))
	for tier := 0; tier <= 5; tier++ {
		for _, t := range tools {
			if rank[core.ParseNodeType(t.Type)] == tier && core.ParseNodeType(t.Type) != core.NodeTypeUnknown {
				ordered = append(ordered, t)
			}
		}
	}
	var plan advisory.Plan
	for _, t := range ordered {
		plan.Tools = append(plan.Tools, advisory.PlanStep{ID: t.ID, Key: t.Key, Type: t.Type})
	}
	return plan
}

// executeStep runs one planned tool against the shared case state.
// Failures here are soft: logged and skipped, never terminal.
func (e *Executor) executeStep(r *run, node core.Node, step advisory.PlanStep, tools []advisory.ToolDescriptor) {
	st := r.state

	stepType := core.ParseNodeType(step.Type)
	if stepType == core.NodeTypeUnknown {
		// Planner may omit the type; recover it from the discovered set.
		for _, t := range tools {
			if t.ID == step.ID {
				stepType = core.ParseNodeType(t.Type)
				break
			}
		}
	}

	switch stepType {
	case core.NodeTypePriority:
		st.priorityScore, st.priorityQueue = agents.PriorityQueue(st.order)

	case core.NodeTypeSupplyAgent:
		st.supplyOptions = agents.RankSuppliers(st.order)

	case core.NodeTypeLogisticsAgent:
		option, ok := st.topOption()
		if !ok {
			e.logger.Warn("skipping logistics step, no supply options",
				"bdi", node.ID, "step", step.ID)
			return
		}
		assessment := agents.AssessLogistics(st.order, option)
		st.logistics = &assessment

	case core.NodeTypeFinanceAgent:
		option, ok := st.topOption()
		if !ok {
			e.logger.Warn("skipping finance step, no supply options",
				"bdi", node.ID, "step", step.ID)
			return
		}
		logistics := st.logistics
		if logistics == nil {
			recomputed := agents.AssessLogistics(st.order, option)
			logistics = &recomputed
		}
		assessment := agents.AssessFinance(st.order, option, *logistics)
		st.finance = &assessment

	case core.NodeTypeCustomerService:
		if st.finance == nil {
			e.logger.Warn("skipping customer service step, no finance assessment",
				"bdi", node.ID, "step", step.ID)
			return
		}
		decision := agents.CustomerServiceCall(st.order, *st.finance)
		st.customer = &decision

	case core.NodeTypeConsensus:
		// Consensus is recomputed from the ballot after all steps; a
		// planned consensus step carries no extra state.

	default:
		e.logger.Warn("skipping unknown planned step",
			"bdi", node.ID, "step", step.ID, "type", step.Type)
	}
}

// bdiSnapshot is the case digest handed to the summarizer.
type bdiSnapshot struct {
	Order           core.OrderContext             `json:"order"`
	Desires         Desires                       `json:"desires"`
	Priority        float64                       `json:"priority"`
	PriorityQueue   []core.PriorityTask           `json:"priorityQueue,omitempty"`
	SupplyOptions   []core.SupplyOption           `json:"supplyOptions,omitempty"`
	Logistics       *core.LogisticsAssessment     `json:"logistics,omitempty"`
	Finance         *core.FinanceAssessment       `json:"finance,omitempty"`
	CustomerService *core.CustomerServiceDecision `json:"customerService,omitempty"`
	Consensus       core.ConsensusResult          `json:"consensus"`
}

// summarize asks the advisory service for the decision narrative, falling
// back to a deterministic digest when the call degrades.
func (e *Executor) summarize(ctx context.Context, r *run, node core.Node, out BDIOutput, consensus core.ConsensusResult) string {
	st := r.state

	snapshot := bdiSnapshot{
		Order:           st.order,
		Desires:         out.Desires,
		Priority:        out.Priority,
		PriorityQueue:   out.PriorityQueue,
		Logistics:       st.logistics,
		Finance:         st.finance,
		CustomerService: st.customer,
		Consensus:       consensus,
	}
	// Two options deep is enough signal for the summary.
	if len(st.supplyOptions) > 2 {
		snapshot.SupplyOptions = st.supplyOptions[:2]
	} else {
		snapshot.SupplyOptions = st.supplyOptions
	}

	digest, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		digest = []byte(fmt.Sprintf("order %s: consensus %.2f", st.order.ID, consensus.Score))
	}

	if e.advisory != nil {
		start := e.now()
		e.emit(r, NewEvent(EventAdvisoryCall, r.id).
			WithNode(node.ID, core.NodeTypeBDICrisis).
			WithPayload("operation", "summarize"))

		text, err := e.advisory.Summarize(ctx, string(digest))
		elapsed := e.now().Sub(start)
		if err == nil && text != "" {
			e.emit(r, NewEvent(EventAdvisoryResult, r.id).
				WithNode(node.ID, core.NodeTypeBDICrisis).
				WithElapsed(elapsed).
				WithPayload("operation", "summarize"))
			return text
		}
		if err != nil {
			e.logger.Warn("advisory summary failed, using case digest",
				"node", node.ID, "error", err)
		}
		e.emit(r, NewEvent(EventAdvisoryResult, r.id).
			WithNode(node.ID, core.NodeTypeBDICrisis).
			WithElapsed(elapsed).
			WithPayload("operation", "summarize").
			WithPayload("fallback", true))
	}
	return bdiFallbackPrefix + string(digest)
}

func hasToolType(tools []advisory.ToolDescriptor, want core.NodeType) bool {
	for _, t := range tools {
		if core.ParseNodeType(t.Type) == want {
			return true
		}
	}
	return false
}

// validateOutputChoice keeps the planner's output preference only when it
// names a discovered candidate.
func validateOutputChoice(nodeID string, outputs []advisory.OutputCandidate) string {
	if nodeID == "" {
		return ""
	}
	for _, out := range outputs {
		if out.ID == nodeID {
			return nodeID
		}
	}
	return ""
}
