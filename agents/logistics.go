package agents

import "github.com/crisis-labs/crisisflow/core"

// AssessLogistics evaluates shipping feasibility, cost and risk for one
// supply option. Rush delivery is needed when the option's ETA misses the
// SLA; rush cost grows 5 per hour of overshoot, capped at 120 on top of
// the 40 base shipping cost. An option stays feasible up to 48 hours past
// the SLA as long as stock covers the order.
func AssessLogistics(order core.OrderContext, option core.SupplyOption) core.LogisticsAssessment {
	rushNeeded := option.ETAHours > order.SLAHours

	rushCost := 0.0
	if rushNeeded {
		rushHours := option.ETAHours - order.SLAHours
		rushCost = rushHours * 5
		if rushCost > 120 {
			rushCost = 120
		}
	}

	risk := 0.15
	notes := "standard delivery"
	if rushNeeded {
		risk = 0.35
		notes = "expedited delivery required"
	}

	return core.LogisticsAssessment{
		SupplierID:   option.SupplierID,
		Feasible:     option.AvailableQty >= order.Quantity && option.ETAHours <= order.SLAHours+48,
		ETAHours:     option.ETAHours,
		ShippingCost: 40 + rushCost,
		Risk:         risk,
		Notes:        notes,
	}
}
