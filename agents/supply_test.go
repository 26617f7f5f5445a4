package agents

import (
	"testing"

	"github.com/crisis-labs/crisisflow/core"
)

func TestRankSuppliersDefaultOrder(t *testing.T) {
	order := core.DefaultOrderContext()

	options := RankSuppliers(order)
	if len(options) != 3 {
		t.Fatalf("expected all 3 suppliers viable, got %d", len(options))
	}

	// With an 18h SLA the price-capped FastSupply wins on ETA proximity,
	// ReliableCo ranks second, slow BudgetParts last.
	want := []string{"alt-1", "alt-3", "alt-2"}
	for i, id := range want {
		if options[i].SupplierID != id {
			t.Errorf("rank %d: got %s, want %s", i, options[i].SupplierID, id)
		}
	}
}

func TestRankSuppliersExcludesShortStock(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     []string
	}{
		{"all viable", 12, []string{"alt-1", "alt-3", "alt-2"}},
		{"excludes alt-1", 60, []string{"alt-3", "alt-2"}},
		{"excludes alt-1 and alt-2", 150, []string{"alt-3"}},
		{"nothing viable", 999999, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := core.DefaultOrderContext()
			order.Quantity = tt.quantity

			options := RankSuppliers(order)
			if len(options) != len(tt.want) {
				t.Fatalf("got %d options, want %d", len(options), len(tt.want))
			}
			for i, id := range tt.want {
				if options[i].SupplierID != id {
					t.Errorf("rank %d: got %s, want %s", i, options[i].SupplierID, id)
				}
			}
			for _, opt := range options {
				if opt.AvailableQty < order.Quantity {
					t.Errorf("option %s has qty %d < ordered %d", opt.SupplierID, opt.AvailableQty, order.Quantity)
				}
			}
		})
	}
}

func TestRankSuppliersZeroBasePrice(t *testing.T) {
	order := core.DefaultOrderContext()
	order.BasePrice = 0

	// Neutral price score for every option; ranking must still be total.
	options := RankSuppliers(order)
	if len(options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(options))
	}
	if options[0].SupplierID != "alt-1" {
		t.Errorf("top option: got %s, want alt-1", options[0].SupplierID)
	}
}

func TestRankSuppliersRelaxedSLAPenalty(t *testing.T) {
	// At a 72h SLA every option meets the deadline, the 0.1 penalty
	// applies uniformly, and reliability plus price decide the order.
	order := core.DefaultOrderContext()
	order.SLAHours = 72

	options := RankSuppliers(order)
	if len(options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(options))
	}
	if options[0].SupplierID != "alt-3" {
		t.Errorf("top option: got %s, want alt-3", options[0].SupplierID)
	}
}
