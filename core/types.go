// Package core provides the foundational types for crisisflow pipelines.
//
// This package contains:
//   - Graph model: Node, Edge, NodeType
//   - Case state: OrderContext and the per-agent assessment types
//   - Execution trace: ExecutionResult, ExecutionResponse
package core

// NodeType identifies the type of a pipeline node.
// The set of types is closed: anything the parser does not recognize maps to
// NodeTypeUnknown, which the executor rejects as unsupported.
type NodeType string

const (
	NodeTypeInput           NodeType = "input"
	NodeTypePriority        NodeType = "priority_scheduler"
	NodeTypeSupplyAgent     NodeType = "supply_agent"
	NodeTypeLogisticsAgent  NodeType = "logistics_agent"
	NodeTypeFinanceAgent    NodeType = "finance_agent"
	NodeTypeCustomerService NodeType = "customer_service_agent"
	NodeTypeConsensus       NodeType = "consensus"
	NodeTypeBDICrisis       NodeType = "bdi_crisis_manager"
	NodeTypeAction          NodeType = "action"
	NodeTypeOutputResponse  NodeType = "output-response"
	NodeTypeUnknown         NodeType = ""
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	return string(t)
}

// ParseNodeType converts a stored type string to a NodeType.
// Unrecognized strings map to NodeTypeUnknown.
func ParseNodeType(s string) NodeType {
	switch NodeType(s) {
	case NodeTypeInput, NodeTypePriority, NodeTypeSupplyAgent,
		NodeTypeLogisticsAgent, NodeTypeFinanceAgent, NodeTypeCustomerService,
		NodeTypeConsensus, NodeTypeBDICrisis, NodeTypeAction,
		NodeTypeOutputResponse:
		return NodeType(s)
	default:
		return NodeTypeUnknown
	}
}

// IsAgentTool reports whether the node type is one of the subordinate
// agent/tool types a BDI crisis manager can schedule.
func (t NodeType) IsAgentTool() bool {
	switch t {
	case NodeTypePriority, NodeTypeSupplyAgent, NodeTypeLogisticsAgent,
		NodeTypeFinanceAgent, NodeTypeCustomerService, NodeTypeConsensus:
		return true
	default:
		return false
	}
}

// IsOutput reports whether the node type is a terminal decision carrier.
func (t NodeType) IsOutput() bool {
	return t == NodeTypeAction || t == NodeTypeOutputResponse
}

// Node is one typed unit of work within a pipeline version's graph.
// Nodes are immutable for the duration of a run.
type Node struct {
	ID       string         `json:"id"`
	Key      string         `json:"key"`
	Type     string         `json:"type"` // raw stored type; dispatch uses ParseNodeType
	Label    string         `json:"label,omitempty"`
	Category string         `json:"category,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// Edge is a directed dependency link between two nodes of one version.
// Duplicate edges are permitted and the scheduler does not deduplicate them.
type Edge struct {
	FromNode string `json:"fromNode"`
	ToNode   string `json:"toNode"`
	Label    string `json:"label,omitempty"`
}

// OrderContext is the shared belief state of the simulated crisis order.
// It is seeded with DefaultOrderContext, then shallow-merged with the
// input node config and the caller's trigger input.
type OrderContext struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku"`
	Quantity    int     `json:"quantity"`
	SLAHours    float64 `json:"slaHours"`
	IsVIP       bool    `json:"isVip"`
	PenaltyCost float64 `json:"penaltyCost"`
	BasePrice   float64 `json:"basePrice"`
}

// DefaultOrderContext returns the built-in crisis case: a VIP B2B customer,
// a bulk order, a tight SLA and a high penalty, so that logistics, finance
// and customer service genuinely disagree.
func DefaultOrderContext() OrderContext {
	return OrderContext{
		ID:          "order-crisis-1",
		SKU:         "server-rack-42u-premium",
		Quantity:    12,
		SLAHours:    18,
		IsVIP:       true,
		PenaltyCost: 25000,
		BasePrice:   4800,
	}
}

// SupplyOption is a candidate alternative supplier for the order.
type SupplyOption struct {
	SupplierID   string  `json:"supplierId"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	AvailableQty int     `json:"availableQty"`
	ETAHours     float64 `json:"etaHours"`
	Reliability  float64 `json:"reliability"` // 0..1
}

// LogisticsAssessment is the logistics agent's evaluation of one option.
type LogisticsAssessment struct {
	SupplierID   string  `json:"supplierId"`
	Feasible     bool    `json:"feasible"`
	ETAHours     float64 `json:"etaHours"`
	ShippingCost float64 `json:"shippingCost"`
	Risk         float64 `json:"risk"` // 0..1
	Notes        string  `json:"notes,omitempty"`
}

// FinanceAssessment is the finance agent's evaluation of one option.
type FinanceAssessment struct {
	SupplierID   string  `json:"supplierId"`
	OK           bool    `json:"ok"`
	UnitCost     float64 `json:"unitCost"`
	ShippingCost float64 `json:"shippingCost"`
	Margin       float64 `json:"margin"` // absolute margin per unit
	ROI          float64 `json:"roi"`    // margin / (unitCost + shipping per unit)
	Notes        string  `json:"notes,omitempty"`
	Vote         float64 `json:"vote"` // 0..1, feeds consensus
}

// CustomerServiceDecision is the customer service agent's call on messaging
// and compensation.
type CustomerServiceDecision struct {
	NotifyCustomer bool    `json:"notifyCustomer"`
	Compensation   string  `json:"compensation,omitempty"`
	Message        string  `json:"message,omitempty"`
	Vote           float64 `json:"vote"`
}

// ConsensusResult is the averaged-vote acceptance check.
type ConsensusResult struct {
	Score    float64 `json:"score"`
	Accepted bool    `json:"accepted"`
}

// PriorityTask is one entry of the advisory priority queue produced by the
// priority scheduler. The queue is metadata only; it never changes the
// actual execution order.
type PriorityTask struct {
	TaskID   string  `json:"taskId"`
	Priority float64 `json:"priority"`
}

// ExecutionStatus is the outcome of one node visit.
type ExecutionStatus string

const (
	StatusSucceeded ExecutionStatus = "succeeded"
	StatusFailed    ExecutionStatus = "failed"
)

// ExecutionResult is the audit record for one visited node.
// Results are append-only and never mutated after creation.
type ExecutionResult struct {
	NodeID string          `json:"nodeId"`
	Type   string          `json:"type"`
	Status ExecutionStatus `json:"status"`
	Output any             `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ExecutionResponse is the full payload of one pipeline run.
// Results may be truncated if a node failure stopped the run; FinalOutput
// is empty unless an action or output-response node produced one.
type ExecutionResponse struct {
	Results     []ExecutionResult `json:"results"`
	FinalOutput string            `json:"finalOutput,omitempty"`
	VersionID   string            `json:"versionId"`
}
