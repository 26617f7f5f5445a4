// Package agents provides the pure scoring functions behind the crisis
// pipeline's subordinate agents: supplier ranking, logistics feasibility,
// finance margin/ROI, customer-service messaging, priority queueing and
// vote consensus. Functions here have no side effects and no collaborator
// dependencies, so they are shared by both the top-level node handlers and
// the BDI orchestrator's sub-steps.
package agents

import (
	"sort"

	"github.com/crisis-labs/crisisflow/core"
)

// MockSuppliers is the simulated alternative-supplier catalog.
// In a real deployment this would come from a procurement system; here the
// three options deliberately trade off price, speed and reliability.
var MockSuppliers = []core.SupplyOption{
	{SupplierID: "alt-1", Name: "FastSupply", Price: 980, AvailableQty: 50, ETAHours: 24, Reliability: 0.92},
	{SupplierID: "alt-2", Name: "BudgetParts", Price: 910, AvailableQty: 120, ETAHours: 72, Reliability: 0.78},
	{SupplierID: "alt-3", Name: "ReliableCo", Price: 1020, AvailableQty: 200, ETAHours: 36, Reliability: 0.96},
}

// RankSuppliers scores the supplier catalog against the order and returns
// the viable options sorted best-first. Options that cannot cover the
// ordered quantity are excluded. The internal score is not exposed.
//
// Score = 0.4*etaScore + 0.3*priceScore + 0.3*reliability - slaPenalty,
// where etaScore is 1 when the option meets the SLA and decays linearly
// over a 72h window past it, and priceScore caps at 1 when the option is
// at or below the base price.
func RankSuppliers(order core.OrderContext) []core.SupplyOption {
	type scored struct {
		opt   core.SupplyOption
		score float64
	}

	slaPenalty := 0.1
	switch {
	case order.SLAHours <= 24:
		slaPenalty = 0
	case order.SLAHours <= 48:
		slaPenalty = 0.05
	}

	candidates := make([]scored, 0, len(MockSuppliers))
	for _, opt := range MockSuppliers {
		if opt.AvailableQty < order.Quantity {
			continue
		}

		etaScore := 1.0
		if opt.ETAHours > order.SLAHours {
			etaScore = 1 - (opt.ETAHours-order.SLAHours)/72
			if etaScore < 0 {
				etaScore = 0
			}
		}

		priceScore := 0.7
		if order.BasePrice > 0 {
			priceScore = order.BasePrice / opt.Price
			if priceScore > 1 {
				priceScore = 1
			}
		}

		score := 0.4*etaScore + 0.3*priceScore + 0.3*opt.Reliability - slaPenalty
		candidates = append(candidates, scored{opt: opt, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	options := make([]core.SupplyOption, len(candidates))
	for i, c := range candidates {
		options[i] = c.opt
	}
	return options
}
