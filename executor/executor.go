package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crisis-labs/crisisflow/advisory"
	"github.com/crisis-labs/crisisflow/agents"
	"github.com/crisis-labs/crisisflow/core"
	"github.com/crisis-labs/crisisflow/store"
)

// Executor errors
var (
	// ErrPrecondition means a node's required shared state is missing,
	// for example logistics running with no viable supply option.
	// Terminal for the run at that node.
	ErrPrecondition = errors.New("precondition not met")

	// ErrUnsupportedNodeType means dispatch hit an unrecognized node type.
	ErrUnsupportedNodeType = errors.New("unsupported node type")
)

// Executor runs stored pipeline graphs. Execution is single-threaded and
// synchronous per run: nodes are visited strictly in scheduler order, one
// at a time. Concurrent Execute calls are independent and share no state.
type Executor struct {
	graphs   store.GraphStore
	tools    store.ToolRegistry
	advisory advisory.Planner
	logger   *slog.Logger
	events   EventHandler
	now      func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithToolRegistry wires the registry used to resolve node toolId configs.
func WithToolRegistry(reg store.ToolRegistry) Option {
	return func(e *Executor) { e.tools = reg }
}

// WithAdvisory wires the advisory language service used by BDI nodes.
// Without it every BDI node takes its deterministic fallback path.
func WithAdvisory(p advisory.Planner) Option {
	return func(e *Executor) { e.advisory = p }
}

// WithLogger sets the logger for soft failures and fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithEvents sets the handler receiving run and node events.
func WithEvents(h EventHandler) Option {
	return func(e *Executor) { e.events = h }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor over the given graph store.
func New(graphs store.GraphStore, opts ...Option) *Executor {
	e := &Executor{
		graphs: graphs,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// run carries the per-run working set the handlers share.
type run struct {
	id       string
	pipeline string
	mode     string
	nodes    map[string]core.Node
	incoming map[string][]core.Edge
	outgoing map[string][]core.Edge
	results  []core.ExecutionResult
	byNode   map[string]core.ExecutionResult
	state    *caseState
	seq      *seqGen
	started  time.Time
}

// Execute runs the latest version of the pipeline's graph.
//
// mode is accepted for caller-side environment selection and recorded on
// events, but execution never branches on it. triggerInput, when not
// empty, is parsed as a JSON object and shallow-merged over the default
// order context; malformed input is ignored, not an error.
//
// The response always carries the (possibly truncated) results trace and
// the version id. The first handler error stops the run: the failing node
// gets a failed result and no further nodes execute.
func (e *Executor) Execute(ctx context.Context, pipelineID, mode, triggerInput string) (*core.ExecutionResponse, error) {
	pipeline, err := e.graphs.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", pipelineID, err)
	}
	version, err := e.graphs.GetLatestVersion(ctx, pipeline.ID)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s version: %w", pipelineID, err)
	}

	nodes, err := e.graphs.ListNodes(ctx, version.ID)
	if err != nil {
		return nil, fmt.Errorf("loading nodes for version %s: %w", version.ID, err)
	}
	edges, err := e.graphs.ListEdges(ctx, version.ID)
	if err != nil {
		return nil, fmt.Errorf("loading edges for version %s: %w", version.ID, err)
	}

	r := &run{
		id:       uuid.NewString(),
		pipeline: pipeline.ID,
		mode:     mode,
		nodes:    make(map[string]core.Node, len(nodes)),
		incoming: make(map[string][]core.Edge),
		outgoing: make(map[string][]core.Edge),
		byNode:   make(map[string]core.ExecutionResult),
		state:    newCaseState(triggerInput),
		seq:      &seqGen{},
		started:  e.now(),
	}
	for _, n := range nodes {
		r.nodes[n.ID] = n
	}
	for _, edge := range edges {
		r.outgoing[edge.FromNode] = append(r.outgoing[edge.FromNode], edge)
		r.incoming[edge.ToNode] = append(r.incoming[edge.ToNode], edge)
	}

	order := Schedule(nodes, edges)

	e.emit(r, NewEvent(EventRunStarted, r.id).
		WithPayload("version", version.ID))

	failed := false
	for _, nodeID := range order {
		node, ok := r.nodes[nodeID]
		if !ok {
			// Scheduler and node map disagree; skip silently.
			continue
		}
		nodeType := core.ParseNodeType(node.Type)

		nodeStart := e.now()
		e.emit(r, NewEvent(EventNodeStarted, r.id).
			WithNode(node.ID, nodeType).
			WithElapsed(nodeStart.Sub(r.started)))

		output, err := e.dispatch(ctx, r, node, nodeType)
		elapsed := e.now().Sub(nodeStart)

		if err != nil {
			result := core.ExecutionResult{
				NodeID: node.ID,
				Type:   node.Type,
				Status: core.StatusFailed,
				Error:  err.Error(),
			}
			r.results = append(r.results, result)
			r.byNode[node.ID] = result
			e.emit(r, NewEvent(EventNodeFailed, r.id).
				WithNode(node.ID, nodeType).
				WithElapsed(elapsed).
				WithPayload("error", err.Error()))
			failed = true
			break
		}

		result := core.ExecutionResult{
			NodeID: node.ID,
			Type:   node.Type,
			Status: core.StatusSucceeded,
			Output: output,
		}
		r.results = append(r.results, result)
		r.byNode[node.ID] = result
		e.emit(r, NewEvent(EventNodeFinished, r.id).
			WithNode(node.ID, nodeType).
			WithElapsed(elapsed))
	}

	status := "completed"
	if failed {
		status = "failed"
	}
	e.emit(r, NewEvent(EventRunFinished, r.id).
		WithElapsed(e.now().Sub(r.started)).
		WithPayload("status", status))

	resp := &core.ExecutionResponse{
		Results:   r.results,
		VersionID: version.ID,
	}
	if r.state.hasFinalOutput {
		resp.FinalOutput = r.state.finalOutput
	}
	return resp, nil
}

func (e *Executor) emit(r *run, event Event) {
	if e.events == nil {
		return
	}
	event.Seq = r.seq.Next()
	event.PipelineID = r.pipeline
	if r.mode != "" {
		event = event.WithPayload("mode", r.mode)
	}
	e.events(event)
}

// predecessorOutputs collects outputs of direct graph predecessors whose
// result succeeded. Node types that can read from siblings use this to
// support non-linear graphs without a BDI hub.
func (r *run) predecessorOutputs(nodeID string) []any {
	var outputs []any
	for _, edge := range r.incoming[nodeID] {
		res, ok := r.byNode[edge.FromNode]
		if !ok || res.Status != core.StatusSucceeded {
			continue
		}
		outputs = append(outputs, res.Output)
	}
	return outputs
}

// dispatch resolves the node type to its handler and runs it against the
// shared case state.
func (e *Executor) dispatch(ctx context.Context, r *run, node core.Node, nodeType core.NodeType) (any, error) {
	st := r.state
	switch nodeType {
	case core.NodeTypeInput:
		if overrides, ok := node.Config["order"].(map[string]any); ok {
			st.order.Apply(overrides)
		}
		return st.order, nil

	case core.NodeTypePriority:
		base, queue := agents.PriorityQueue(st.order)
		st.priorityScore = base
		st.priorityQueue = queue
		return PriorityOutput{BasePriority: base, Queue: queue}, nil

	case core.NodeTypeSupplyAgent:
		st.supplyOptions = agents.RankSuppliers(st.order)
		return SupplyOutput{Agent: "SupplyAgent", Options: st.supplyOptions}, nil

	case core.NodeTypeLogisticsAgent:
		option, ok := st.topOption()
		if !ok {
			// Non-linear graphs: read a direct predecessor's ranking.
			option, ok = supplyFromInputs(r.predecessorOutputs(node.ID))
		}
		if !ok {
			return nil, fmt.Errorf("%w: no alternative suppliers available", ErrPrecondition)
		}
		assessment := agents.AssessLogistics(st.order, option)
		st.logistics = &assessment
		return LogisticsOutput{Agent: "LogisticsAgent", Assessment: assessment}, nil

	case core.NodeTypeFinanceAgent:
		option, ok := st.topOption()
		if !ok {
			return nil, fmt.Errorf("%w: no supplier or logistics data", ErrPrecondition)
		}
		logistics := st.logistics
		if logistics == nil {
			recomputed := agents.AssessLogistics(st.order, option)
			logistics = &recomputed
		}
		assessment := agents.AssessFinance(st.order, option, *logistics)
		st.finance = &assessment
		return FinanceOutput{Agent: "FinanceAgent", Assessment: assessment}, nil

	case core.NodeTypeCustomerService:
		finance := st.finance
		if finance == nil {
			finance = financeFromInputs(r.predecessorOutputs(node.ID))
		}
		if finance == nil {
			return nil, fmt.Errorf("%w: no finance assessment", ErrPrecondition)
		}
		decision := agents.CustomerServiceCall(st.order, *finance)
		st.customer = &decision
		return CustomerServiceOutput{Agent: "CustomerServiceAgent", Decision: decision}, nil

	case core.NodeTypeConsensus:
		return agents.ConsensusScore(st.votes(), agents.DefaultConsensusThreshold), nil

	case core.NodeTypeBDICrisis:
		return e.runBDI(ctx, r, node), nil

	case core.NodeTypeAction:
		final, entitled := st.planTextFor(node.ID)
		if !entitled {
			final = synthesizeDecision(st)
		}
		st.finalOutput = final
		st.hasFinalOutput = true
		return ActionOutput{FinalOutput: final}, nil

	case core.NodeTypeOutputResponse:
		effective, entitled := st.planTextFor(node.ID)
		if !entitled && st.hasFinalOutput {
			effective = st.finalOutput
			entitled = true
		}
		if !entitled || effective == "" {
			return nil, fmt.Errorf("%w: no final decision from a crisis manager or action node", ErrPrecondition)
		}
		st.finalOutput = effective
		st.hasFinalOutput = true
		return effective, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNodeType, node.Type)
	}
}

// synthesizeDecision is the action node's deterministic fallback when no
// BDI plan text applies: reassign when the agents reached consensus,
// otherwise notify and compensate.
func synthesizeDecision(st *caseState) string {
	consensus := agents.ConsensusScore(st.votes(), agents.DefaultConsensusThreshold)
	option, hasOption := st.topOption()
	if consensus.Accepted && hasOption && st.logistics != nil && st.finance != nil {
		return fmt.Sprintf(
			"Reassign order %s to supplier %s, ETA %gh, expected margin %.2f. Notify the customer about the supplier change.",
			st.order.ID, option.Name, st.logistics.ETAHours, st.finance.Margin)
	}
	return "Consensus not reached: notify the customer about the delay and offer compensation."
}

func supplyFromInputs(inputs []any) (core.SupplyOption, bool) {
	for _, in := range inputs {
		if out, ok := in.(SupplyOutput); ok && len(out.Options) > 0 {
			return out.Options[0], true
		}
	}
	return core.SupplyOption{}, false
}

func financeFromInputs(inputs []any) *core.FinanceAssessment {
	for _, in := range inputs {
		if out, ok := in.(FinanceOutput); ok {
			assessment := out.Assessment
			return &assessment
		}
	}
	return nil
}
