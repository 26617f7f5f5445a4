package executor

import (
	"github.com/crisis-labs/crisisflow/advisory"
	"github.com/crisis-labs/crisisflow/core"
)

// Typed handler outputs. These end up on the ExecutionResults and in the
// run response JSON, so field names follow the wire shapes the canvas UI
// already renders.

// PriorityOutput is the priority scheduler's advisory ranking.
type PriorityOutput struct {
	BasePriority float64             `json:"basePriority"`
	Queue        []core.PriorityTask `json:"queue"`
}

// SupplyOutput is the supply agent's ranked option list.
type SupplyOutput struct {
	Agent   string              `json:"agent"`
	Options []core.SupplyOption `json:"options"`
}

// LogisticsOutput is the logistics agent's assessment of the top option.
type LogisticsOutput struct {
	Agent      string                   `json:"agent"`
	Assessment core.LogisticsAssessment `json:"assessment"`
}

// FinanceOutput is the finance agent's assessment.
type FinanceOutput struct {
	Agent      string                 `json:"agent"`
	Assessment core.FinanceAssessment `json:"assessment"`
}

// CustomerServiceOutput is the customer service agent's decision.
type CustomerServiceOutput struct {
	Agent    string                       `json:"agent"`
	Decision core.CustomerServiceDecision `json:"decision"`
}

// ActionOutput carries the final decision an action node settled on.
type ActionOutput struct {
	FinalOutput string `json:"finalOutput"`
}

// Desires are the BDI agent's derived objectives for the case.
type Desires struct {
	MinimizeDelay   bool `json:"minimizeDelay"`
	MinimizePenalty bool `json:"minimizePenalty"`
	ProtectVIP      bool `json:"protectVip"`
}

// BDIOutput is the crisis manager's full case record: beliefs, desires,
// the discovered and planned tools, every sub-agent assessment gathered
// during the run, and the resulting plan text.
type BDIOutput struct {
	Beliefs         core.OrderContext             `json:"beliefs"`
	Desires         Desires                       `json:"desires"`
	Priority        float64                       `json:"priority"`
	PriorityQueue   []core.PriorityTask           `json:"priorityQueue,omitempty"`
	Tools           []advisory.ToolDescriptor     `json:"tools,omitempty"`
	PlannedSteps    []advisory.PlanStep           `json:"plannedSteps,omitempty"`
	Supply          []core.SupplyOption           `json:"supply,omitempty"`
	Logistics       *core.LogisticsAssessment     `json:"logistics,omitempty"`
	Finance         *core.FinanceAssessment       `json:"finance,omitempty"`
	CustomerService *core.CustomerServiceDecision `json:"customerService,omitempty"`
	Consensus       *core.ConsensusResult         `json:"consensus,omitempty"`
	PlanText        string                        `json:"planText"`
	OutputNodeID    string                        `json:"outputNodeId,omitempty"`
}
