package agents

import (
	"sort"

	"github.com/crisis-labs/crisisflow/core"
)

// BasePriority computes the case urgency score:
// VIP adds 0.3, a penalty at stake adds 0.2, and SLA pressure contributes
// up to 1.0 decaying linearly over a 72 hour window.
func BasePriority(order core.OrderContext) float64 {
	p := 0.0
	if order.IsVIP {
		p += 0.3
	}
	sla := 1 - order.SLAHours/72
	if sla > 0 {
		p += sla
	}
	if order.PenaltyCost > 0 {
		p += 0.2
	}
	return p
}

// PriorityQueue derives the advisory task queue from the base priority.
// The queue orders the four fixed crisis tasks by descending priority.
// It is metadata for the BDI planner and the UI; the scheduler ignores it.
func PriorityQueue(order core.OrderContext) (float64, []core.PriorityTask) {
	base := BasePriority(order)
	queue := []core.PriorityTask{
		{TaskID: "find_alternative_supplier", Priority: base + 0.3},
		{TaskID: "evaluate_finance", Priority: base + 0.2},
		{TaskID: "evaluate_logistics", Priority: base + 0.1},
		{TaskID: "evaluate_customer_impact", Priority: base},
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Priority > queue[j].Priority
	})
	return base, queue
}
