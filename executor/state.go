package executor

import "github.com/crisis-labs/crisisflow/core"

// caseState is the shared decision state threaded through one run.
// It is confined to a single Execute call and never accessed concurrently,
// so handlers mutate it directly through the pointer they receive.
type caseState struct {
	order core.OrderContext

	supplyOptions []core.SupplyOption
	logistics     *core.LogisticsAssessment
	finance       *core.FinanceAssessment
	customer      *core.CustomerServiceDecision

	priorityScore float64
	priorityQueue []core.PriorityTask

	// planText and planOutputNodeID are produced by a BDI node and
	// consumed by downstream action/output-response nodes.
	planText         string
	planOutputNodeID string

	finalOutput    string
	hasFinalOutput bool
}

func newCaseState(triggerInput string) *caseState {
	order := core.DefaultOrderContext()
	order.MergeJSON(triggerInput)
	return &caseState{order: order}
}

// topOption returns the best-ranked supply option, if any.
func (st *caseState) topOption() (core.SupplyOption, bool) {
	if len(st.supplyOptions) == 0 {
		return core.SupplyOption{}, false
	}
	return st.supplyOptions[0], true
}

// votes returns the consensus ballot: finance and customer-service votes,
// missing assessments counted as zero.
func (st *caseState) votes() []float64 {
	votes := []float64{0, 0}
	if st.finance != nil {
		votes[0] = st.finance.Vote
	}
	if st.customer != nil {
		votes[1] = st.customer.Vote
	}
	return votes
}

// planTextFor returns the BDI plan text when this node is entitled to it:
// either the planner named it as the preferred output node, or no
// preference was recorded at all.
func (st *caseState) planTextFor(nodeID string) (string, bool) {
	if st.planText == "" {
		return "", false
	}
	if st.planOutputNodeID != "" && st.planOutputNodeID != nodeID {
		return "", false
	}
	return st.planText, true
}
