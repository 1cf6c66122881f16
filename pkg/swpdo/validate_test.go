package swpdo

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidatePreBuildAcceptsWellFormedRequest(t *testing.T) {
	req := NewTestSolveRequest()
	if err := ValidatePreBuild(req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidatePreBuildCatchesUnknownRouteOrigin(t *testing.T) {
	req := NewTestSolveRequest()
	req.Routes[0].Origin = "ghost"
	err := ValidatePreBuild(req)
	if err == nil {
		t.Fatal("expected an error for an unknown route origin")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("expected *ConfigError, got %T", err)
	}
}

func TestValidatePreBuildCatchesShortagePenaltyFloor(t *testing.T) {
	req := NewTestSolveRequest()
	req.CostStructure.ShortagePenaltyPerUnit = decimal.NewFromFloat(0.5) // below 4x unit cost of 1.0
	err := ValidatePreBuild(req)
	if err == nil {
		t.Fatal("expected an error for an under-scaled shortage penalty")
	}
	ce, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if ce.Rule != "shortage-penalty-floor" {
		t.Errorf("Rule = %q, want shortage-penalty-floor", ce.Rule)
	}
}

func TestValidatePreBuildCatchesMissingLaborDay(t *testing.T) {
	req := NewTestSolveRequest()
	delete(req.LaborCalendar, dateKey(req.Horizon.Start))
	err := ValidatePreBuild(req)
	if err == nil {
		t.Fatal("expected an error for a horizon day missing from the labor calendar")
	}
}

func TestValidatePostSolveCatchesNegativeInventory(t *testing.T) {
	req := NewTestSolveRequest()
	sol := &AggregateSolution{
		Status: StatusOptimal,
		Inventory: map[InvKey]decimal.Decimal{
			{Node: "store", Product: "white-loaf", State: Ambient, Date: d(2026, 1, 2)}: decimal.NewFromFloat(-5),
		},
	}
	err := ValidatePostSolve(req, nil, sol)
	if err == nil {
		t.Fatal("expected an invariant violation for negative inventory")
	}
	if _, ok := err.(*InvariantViolationError); !ok {
		t.Errorf("expected *InvariantViolationError, got %T", err)
	}
}

func TestValidatePostSolveCatchesMassClosureDrift(t *testing.T) {
	req := NewTestSolveRequest()
	sol := &AggregateSolution{
		Status: StatusOptimal,
		Production: map[ProdKey]decimal.Decimal{
			{Node: "bakery", Product: "white-loaf", Date: d(2026, 1, 1)}: decimal.NewFromInt(400),
		},
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "store", Product: "white-loaf", Date: d(2026, 1, 3)}: decimal.NewFromInt(200),
		},
		Inventory: map[InvKey]decimal.Decimal{
			// end-of-horizon inventory accounts for only 50 of the 200
			// units produced but never consumed: a manufactured drift.
			{Node: "bakery", Product: "white-loaf", State: Ambient, Date: req.Horizon.End}: decimal.NewFromInt(50),
		},
	}
	err := ValidatePostSolve(req, nil, sol)
	if err == nil {
		t.Fatal("expected a mass-closure invariant violation")
	}
	ive, ok := err.(*InvariantViolationError)
	if !ok {
		t.Fatalf("expected *InvariantViolationError, got %T", err)
	}
	if ive.Rule != "global-mass-closure" {
		t.Errorf("Rule = %q, want global-mass-closure", ive.Rule)
	}
}

func TestValidatePostSolveSkippedWhenNotOptimalOrFeasible(t *testing.T) {
	sol := &AggregateSolution{
		Status: StatusInfeasible,
		Inventory: map[InvKey]decimal.Decimal{
			{Node: "store", Product: "white-loaf", State: Ambient, Date: d(2026, 1, 2)}: decimal.NewFromFloat(-5),
		},
	}
	if err := ValidatePostSolve(nil, nil, sol); err != nil {
		t.Errorf("expected no error when status is not Optimal/Feasible, got %v", err)
	}
}

func TestValidatePostFEFOReconciles(t *testing.T) {
	sol := &AggregateSolution{
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "store", Product: "white-loaf", Date: d(2026, 1, 3)}: decimal.NewFromInt(60),
		},
	}
	alloc := &BatchAllocation{
		Entries: []BatchAllocationEntry{
			{
				Batch:        Batch{Node: "store", Product: "white-loaf", ProductionDate: d(2026, 1, 1)},
				Destination:  "store",
				DeliveryDate: d(2026, 1, 3),
				Quantity:     decimal.NewFromInt(60),
			},
		},
	}
	if err := ValidatePostFEFO(sol, alloc); err != nil {
		t.Errorf("expected reconciliation to succeed, got %v", err)
	}
}

func TestValidatePostFEFOCatchesUnreconciledMismatch(t *testing.T) {
	sol := &AggregateSolution{
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "store", Product: "white-loaf", Date: d(2026, 1, 3)}: decimal.NewFromInt(60),
		},
	}
	alloc := &BatchAllocation{} // no entries, no shortfall warning logged either
	err := ValidatePostFEFO(sol, alloc)
	if err == nil {
		t.Fatal("expected an invariant violation for an unexplained reconciliation mismatch")
	}
}
