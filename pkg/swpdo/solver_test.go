package swpdo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSolveProducesACostBreakdownThatSumsToTheObjective(t *testing.T) {
	req := NewTestSolveRequest()
	sol, err := Solve(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != StatusOptimal && sol.Status != StatusFeasible {
		t.Fatalf("status = %v, want Optimal or Feasible", sol.Status)
	}

	total := sol.Costs.Total()
	if !total.Sub(sol.ObjectiveValue).Abs().LessThan(decimal.NewFromFloat(0.01)) {
		t.Errorf("cost breakdown total = %v, objective = %v, want them to agree", total, sol.ObjectiveValue)
	}
}

func TestSolveReportsSolveSecondsAndMIPGap(t *testing.T) {
	req := NewTestSolveRequest()
	sol, err := Solve(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.SolveSeconds < 0 {
		t.Errorf("SolveSeconds = %v, want >= 0", sol.SolveSeconds)
	}
	if sol.MIPGapAchieved < 0 {
		t.Errorf("MIPGapAchieved = %v, want >= 0", sol.MIPGapAchieved)
	}
}

func TestSolveReportsInfeasibleStatusWhenShortagesDisallowedAndUnreachable(t *testing.T) {
	req := NewTestSolveRequest()
	req.Options.AllowShortages = false
	// Demand the route physically cannot satisfy in time: require delivery
	// the same day the horizon opens, before any production can ship.
	req.Forecast = []ForecastEntry{
		{Destination: "store", Product: "white-loaf", DeliveryDate: req.Horizon.Start, Quantity: decimal.NewFromInt(500)},
	}

	sol, err := Solve(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Errorf("status = %v, want Infeasible", sol.Status)
	}
}

func TestRouteCostFindsMatchingRoute(t *testing.T) {
	req := NewTestSolveRequest()
	route := req.Routes[0]

	cost := routeCost(req, route.Origin, route.Destination, route.ArrivalState)
	if !cost.Equal(route.CostPerUnit) {
		t.Errorf("routeCost = %v, want %v", cost, route.CostPerUnit)
	}

	zero := routeCost(req, "nowhere", "nowhere-else", Ambient)
	if !zero.IsZero() {
		t.Errorf("routeCost for an unknown route = %v, want 0", zero)
	}
}
