package swpdo

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidatePreBuild runs the pre-build configuration gate (spec.md §6, §7):
// every check here is cheap, static, and must pass before a Problem is ever
// constructed. A failure here is always a ConfigError, never an
// InvariantViolationError, since nothing has been solved yet.
func ValidatePreBuild(req *SolveRequest) error {
	nodeIDs := make(map[NodeID]bool, len(req.Nodes))
	for _, n := range req.Nodes {
		nodeIDs[n.ID] = true
	}

	for _, r := range req.Routes {
		if !nodeIDs[r.Origin] {
			return &ConfigError{Rule: "route-origin-exists", Witness: fmt.Sprintf("route origin %s not in node list", r.Origin)}
		}
		if !nodeIDs[r.Destination] {
			return &ConfigError{Rule: "route-destination-exists", Witness: fmt.Sprintf("route destination %s not in node list", r.Destination)}
		}
	}

	for _, fe := range req.Forecast {
		if !nodeIDs[fe.Destination] {
			return &ConfigError{Rule: "forecast-destination-exists", Witness: fmt.Sprintf("forecast destination %s not in node list", fe.Destination)}
		}
		if _, ok := req.Products[fe.Product]; !ok {
			return &ConfigError{Rule: "forecast-product-exists", Witness: fmt.Sprintf("forecast references unknown product %s", fe.Product)}
		}
		if !req.Horizon.Contains(fe.DeliveryDate) {
			return &ConfigError{Rule: "forecast-in-horizon", Witness: fmt.Sprintf("forecast delivery date %s falls outside the horizon", dateKey(fe.DeliveryDate))}
		}
	}

	for _, ir := range req.InitialInventory {
		if !nodeIDs[ir.Node] {
			return &ConfigError{Rule: "initial-inventory-node-exists", Witness: fmt.Sprintf("initial inventory references unknown node %s", ir.Node)}
		}
		if _, ok := req.Products[ir.Product]; !ok {
			return &ConfigError{Rule: "initial-inventory-product-exists", Witness: fmt.Sprintf("initial inventory references unknown product %s", ir.Product)}
		}
	}

	minMultiple := decimal.NewFromInt(MinShortagePenaltyMultiple)
	for pid, p := range req.Products {
		floor := p.UnitCost.Mul(minMultiple)
		if req.CostStructure.ShortagePenaltyPerUnit.LessThan(floor) {
			return &ConfigError{
				Rule: "shortage-penalty-floor",
				Witness: fmt.Sprintf("product %s: shortage penalty %s is below %sx unit cost %s",
					pid, req.CostStructure.ShortagePenaltyPerUnit.String(), minMultiple.String(), p.UnitCost.String()),
			}
		}
	}

	for _, d := range req.Horizon.Days() {
		if _, ok := req.LaborCalendar[dateKey(d)]; !ok {
			return &ConfigError{Rule: "labor-calendar-coverage", Witness: fmt.Sprintf("no labor day entry for %s", dateKey(d))}
		}
	}

	for _, n := range req.Nodes {
		if !n.CanProduce && !n.CanStoreAmbient && !n.CanStoreFrozen && !n.CanThaw && !n.IsDemandPoint {
			return &ConfigError{Rule: "node-has-a-role", Witness: fmt.Sprintf("node %s has no capability and is not a demand point", n.ID)}
		}
	}

	return nil
}

// ValidatePostSolve runs the post-solve invariant gate (spec.md §6, §8)
// against the winning AggregateSolution: global mass closure, non-negative
// inventory, consumed plus shortage equal to each forecast quantity, and no
// shortage when shortages are disallowed. It does not check per-day mass
// balance, shelf-life expiry, or pallet rounding. A failure here is always an
// InvariantViolationError carrying a Witness identifying the smallest
// counter-example.
func ValidatePostSolve(req *SolveRequest, nm *NetworkModel, sol *AggregateSolution) error {
	if sol.Status != StatusOptimal && sol.Status != StatusFeasible {
		return nil
	}

	const tolerance = "0.0001"
	tol, _ := decimal.NewFromString(tolerance)

	if err := checkMassClosure(req, sol, tol); err != nil {
		return err
	}

	for k, inv := range sol.Inventory {
		if inv.IsNegative() && inv.Abs().GreaterThan(tol) {
			return &InvariantViolationError{
				Rule: "inventory-nonnegative",
				Witness: Witness{Node: k.Node, Product: k.Product, State: k.State, Date: dateKey(k.Date),
					Detail: fmt.Sprintf("inventory %s is negative", inv.String())},
			}
		}
	}

	for k, dc := range sol.DemandConsumed {
		fe := findForecast(req, k)
		if fe == nil {
			continue
		}
		short := sol.Shortage[k]
		total := dc.Add(short)
		if total.Sub(fe.Quantity).Abs().GreaterThan(tol) {
			return &InvariantViolationError{
				Rule: "demand-fully-accounted",
				Witness: Witness{Node: k.Destination, Product: k.Product, Date: dateKey(k.Date),
					Detail: fmt.Sprintf("consumed+shortage %s != forecast %s", total.String(), fe.Quantity.String())},
			}
		}
		if !req.Options.AllowShortages && short.GreaterThan(tol) {
			return &InvariantViolationError{
				Rule: "shortages-disallowed",
				Witness: Witness{Node: k.Destination, Product: k.Product, Date: dateKey(k.Date),
					Detail: fmt.Sprintf("shortage %s reported with AllowShortages=false", short.String())},
			}
		}
	}

	return nil
}

// checkMassClosure enforces spec.md §3's global mass-closure invariant:
// total production must equal demand consumed plus whatever remains in
// inventory at the last horizon day. End-of-horizon waste is not a
// separate physical flow in this model (there is no disposal variable) —
// the objective prices leftover last-day inventory as waste, so that same
// inventory is the sink the closure check reconciles against.
func checkMassClosure(req *SolveRequest, sol *AggregateSolution, tol decimal.Decimal) error {
	closureTol := tol.Mul(decimal.NewFromInt(100))

	totalProduction := decimal.Zero
	for _, v := range sol.Production {
		totalProduction = totalProduction.Add(v)
	}
	totalConsumed := decimal.Zero
	for _, v := range sol.DemandConsumed {
		totalConsumed = totalConsumed.Add(v)
	}
	totalEndInventory := decimal.Zero
	lastDay := req.Horizon.End
	for k, v := range sol.Inventory {
		if k.Date.Equal(lastDay) {
			totalEndInventory = totalEndInventory.Add(v)
		}
	}

	drift := totalProduction.Sub(totalConsumed).Sub(totalEndInventory)
	if drift.Abs().GreaterThan(closureTol) {
		return &InvariantViolationError{
			Rule: "global-mass-closure",
			Witness: Witness{Detail: fmt.Sprintf(
				"production %s - demand_consumed %s - end_inventory %s leaves drift %s",
				totalProduction.String(), totalConsumed.String(), totalEndInventory.String(), drift.String())},
		}
	}
	return nil
}

// ValidatePostFEFO runs the final reconciliation gate (spec.md §4.7, §6):
// every unit the aggregate solution says was consumed by demand must be
// traceable to an allocation entry summing to the same quantity, within
// tolerance. A deficit on a demand for which AllocateFEFO logged a shortfall
// warning is accepted; any other mismatch is returned as an
// InvariantViolationError.
func ValidatePostFEFO(sol *AggregateSolution, alloc *BatchAllocation) error {
	const tolerance = "0.01"
	tol, _ := decimal.NewFromString(tolerance)

	perDemand := map[DemandKey]decimal.Decimal{}
	for _, e := range alloc.Entries {
		k := DemandKey{Destination: e.Destination, Product: e.Batch.Product, Date: e.DeliveryDate}
		perDemand[k] = perDemand[k].Add(e.Quantity)
	}

	for k, dc := range sol.DemandConsumed {
		allocated := perDemand[k]
		diff := dc.Sub(allocated).Abs()
		if diff.GreaterThan(tol) {
			// A deficit is only acceptable if the FEFO allocator logged a
			// shortfall warning for this exact demand (no traceable batch
			// within shelf life); anything else is a reconciliation bug.
			if !hasShortfallWarning(alloc, k) {
				return &InvariantViolationError{
					Rule: "fefo-reconciles-aggregate",
					Witness: Witness{Node: k.Destination, Product: k.Product, Date: dateKey(k.Date),
						Detail: fmt.Sprintf("aggregate demand_consumed %s, FEFO allocated %s", dc.String(), allocated.String())},
				}
			}
		}
	}

	return nil
}

func findForecast(req *SolveRequest, k DemandKey) *ForecastEntry {
	for i := range req.Forecast {
		fe := &req.Forecast[i]
		if fe.Destination == k.Destination && fe.Product == k.Product && fe.DeliveryDate.Equal(k.Date) {
			return fe
		}
	}
	return nil
}

func hasShortfallWarning(alloc *BatchAllocation, k DemandKey) bool {
	needle := fmt.Sprintf("%s/%s/%s", k.Destination, k.Product, dateKey(k.Date))
	for _, w := range alloc.Warnings {
		if strings.Contains(w, needle) {
			return true
		}
	}
	return false
}
