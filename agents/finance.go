package agents

import "github.com/crisis-labs/crisisflow/core"

// AssessFinance evaluates per-unit margin and ROI for one supply option
// given the logistics assessment. The assessment is OK when margin is
// positive and ROI is at least 5%. The consensus vote rewards an OK
// assessment and discounts logistics risk:
//
//	vote = clamp(0, 1, roi + (ok ? 0.3 : -0.2) - risk*0.2)
func AssessFinance(order core.OrderContext, option core.SupplyOption, logistics core.LogisticsAssessment) core.FinanceAssessment {
	unitCost := option.Price
	quantity := order.Quantity
	if quantity < 1 {
		quantity = 1
	}
	shippingPerUnit := logistics.ShippingCost / float64(quantity)

	margin := order.BasePrice - (unitCost + shippingPerUnit)
	positiveMargin := margin
	if positiveMargin < 0 {
		positiveMargin = 0
	}
	roi := positiveMargin / (unitCost + shippingPerUnit)

	ok := margin > 0 && roi >= 0.05

	vote := roi - logistics.Risk*0.2
	if ok {
		vote += 0.3
	} else {
		vote -= 0.2
	}
	if vote < 0 {
		vote = 0
	}
	if vote > 1 {
		vote = 1
	}

	notes := "budget holds"
	if !ok {
		notes = "margin too thin"
	}

	return core.FinanceAssessment{
		SupplierID:   option.SupplierID,
		OK:           ok,
		UnitCost:     unitCost,
		ShippingCost: logistics.ShippingCost,
		Margin:       margin,
		ROI:          roi,
		Notes:        notes,
		Vote:         vote,
	}
}
