package swpdo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

// TestLawIdempotenceOfResolveWithWarmStart checks spec.md §8's first Law:
// given identical inputs, enabling the campaign warm-start heuristic must
// not change the objective the solver converges to, since a hint only
// reorders branch-and-bound's search, never narrows a bound.
func TestLawIdempotenceOfResolveWithWarmStart(t *testing.T) {
	coldReq := NewTestSolveRequest()
	coldPlan, err := NewEngine(nil).Solve(context.Background(), coldReq)
	if err != nil {
		t.Fatalf("cold Solve: %v", err)
	}

	warmReq := NewTestSolveRequest()
	warmReq.Options.Solver.Warmstart = true
	warmPlan, err := NewEngine(nil).Solve(context.Background(), warmReq)
	if err != nil {
		t.Fatalf("warm Solve: %v", err)
	}

	gap := decimal.NewFromFloat(coldReq.Options.Solver.MIPGap).Mul(coldPlan.Aggregate.ObjectiveValue.Abs())
	tolerance := gap.Add(decimal.NewFromFloat(0.5))
	diff := coldPlan.Aggregate.ObjectiveValue.Sub(warmPlan.Aggregate.ObjectiveValue).Abs()
	if diff.GreaterThan(tolerance) {
		t.Errorf("objective drifted under warm start: cold=%v warm=%v diff=%v, want <= %v",
			coldPlan.Aggregate.ObjectiveValue, warmPlan.Aggregate.ObjectiveValue, diff, tolerance)
	}
}

// shortageCapacityReq builds a single-node, single-day fixture whose
// capacity forces shortages, parameterized by shortage penalty and
// production rate so the two capacity/penalty Laws can share one fixture
// shape.
func shortageCapacityReq(penalty, rateUnitsPerHour decimal.Decimal, fixedHours float64) *SolveRequest {
	horizon := Horizon{Start: d(2026, 1, 1), End: d(2026, 1, 1)}
	depot := Node{
		ID: "depot", CanProduce: true, CanStoreAmbient: true, IsDemandPoint: true,
		StorageCapacityPallets: map[StorageState]int{Ambient: 1000},
	}
	product := NewTestProduct("white-loaf")
	cost := NewTestCostStructure()
	cost.ShortagePenaltyPerUnit = penalty
	cost.ProductionRateUnitsPerHour = rateUnitsPerHour

	laborCal := map[string]LaborDay{
		dateKey(d(2026, 1, 1)): {
			Date: d(2026, 1, 1), FixedHours: fixedHours, MaxHours: fixedHours,
			RegularRate: decimal.NewFromFloat(20), OvertimeRate: decimal.NewFromFloat(30), NonFixedRate: decimal.NewFromFloat(25),
		},
	}
	forecast := []ForecastEntry{
		{Destination: "depot", Product: "white-loaf", DeliveryDate: d(2026, 1, 1), Quantity: decimal.NewFromInt(10000)},
	}

	opts := DefaultOptions()
	opts.Solver.TimeLimitSeconds = 10

	return &SolveRequest{
		Horizon:       horizon,
		Nodes:         []Node{depot},
		Products:      map[ProductID]Product{"white-loaf": product},
		LaborCalendar: laborCal,
		CostStructure: cost,
		Forecast:      forecast,
		Options:       opts,
	}
}

// TestLawMonotonicityInShortagePenalty checks spec.md §8's second Law:
// raising shortage_penalty never increases total shortage (the solver only
// has more incentive to avoid it, and capacity is the only thing
// constraining how much it can avoid).
func TestLawMonotonicityInShortagePenalty(t *testing.T) {
	rate := decimal.NewFromFloat(1000)
	lowReq := shortageCapacityReq(decimal.NewFromFloat(10), rate, 8)
	highReq := shortageCapacityReq(decimal.NewFromFloat(100), rate, 8)

	lowPlan, err := NewEngine(nil).Solve(context.Background(), lowReq)
	if err != nil {
		t.Fatalf("low-penalty Solve: %v", err)
	}
	highPlan, err := NewEngine(nil).Solve(context.Background(), highReq)
	if err != nil {
		t.Fatalf("high-penalty Solve: %v", err)
	}

	lowShortage := sumDemandKeyDecimals(lowPlan.Aggregate.Shortage)
	highShortage := sumDemandKeyDecimals(highPlan.Aggregate.Shortage)

	if highShortage.GreaterThan(lowShortage.Add(decimal.NewFromFloat(0.5))) {
		t.Errorf("shortage at higher penalty (%v) exceeds shortage at lower penalty (%v)", highShortage, lowShortage)
	}
}

// TestLawMonotonicityInCapacity checks spec.md §8's third Law: strictly
// increasing production rate (or labor cap) never increases total cost,
// since every schedule feasible at the lower capacity remains feasible at
// the higher one.
func TestLawMonotonicityInCapacity(t *testing.T) {
	penalty := decimal.NewFromFloat(10)
	lowRateReq := shortageCapacityReq(penalty, decimal.NewFromFloat(500), 8)
	highRateReq := shortageCapacityReq(penalty, decimal.NewFromFloat(2000), 8)

	lowPlan, err := NewEngine(nil).Solve(context.Background(), lowRateReq)
	if err != nil {
		t.Fatalf("low-rate Solve: %v", err)
	}
	highPlan, err := NewEngine(nil).Solve(context.Background(), highRateReq)
	if err != nil {
		t.Fatalf("high-rate Solve: %v", err)
	}

	lowCost := lowPlan.Aggregate.Costs.Total()
	highCost := highPlan.Aggregate.Costs.Total()

	if highCost.GreaterThan(lowCost.Add(decimal.NewFromFloat(0.5))) {
		t.Errorf("total cost at higher capacity (%v) exceeds total cost at lower capacity (%v)", highCost, lowCost)
	}
}

// TestLawFEFOReconstructability checks spec.md §8's fourth Law: summing the
// FEFO post-processor's produce and consume flows per (node, date)
// boundary reproduces the aggregate solution's own production and
// demand-consumed totals within 0.01. The fixture carries a single product,
// so each (node, date) key is also a (product, node, date) boundary.
func TestLawFEFOReconstructability(t *testing.T) {
	req := NewTestSolveRequest()
	plan, err := NewEngine(nil).Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if plan.Batches == nil {
		t.Fatal("expected a non-nil batch allocation for a feasible solve")
	}

	producedByKey := map[string]decimal.Decimal{}
	consumedByKey := map[string]decimal.Decimal{}
	for _, f := range plan.Batches.BatchFlows {
		switch f.EventType {
		case FlowProduce:
			k := string(f.FromLocation) + "|" + dateKey(f.Date)
			producedByKey[k] = producedByKey[k].Add(f.Quantity)
		case FlowConsume:
			k := string(f.ToLocation) + "|" + dateKey(f.Date)
			consumedByKey[k] = consumedByKey[k].Add(f.Quantity)
		}
	}

	for k, qty := range plan.Aggregate.Production {
		key := string(k.Node) + "|" + dateKey(k.Date)
		got := producedByKey[key]
		if !got.Sub(qty).Abs().LessThan(decimal.NewFromFloat(0.01)) {
			t.Errorf("produce flows at %s sum to %v, want %v (aggregate production)", key, got, qty)
		}
	}

	for k, qty := range plan.Aggregate.DemandConsumed {
		key := string(k.Destination) + "|" + dateKey(k.Date)
		got := consumedByKey[key]
		if !got.Sub(qty).Abs().LessThan(decimal.NewFromFloat(0.01)) {
			t.Errorf("consume flows at %s sum to %v, want %v (aggregate demand consumed)", key, got, qty)
		}
	}
}

func sumDemandKeyDecimals(m map[DemandKey]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}
