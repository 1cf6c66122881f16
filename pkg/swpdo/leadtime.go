package swpdo

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ReplenishmentHop is one node along a path from a producing node to a
// destination, with the transit time leading into it and how much of that
// time is masked by inventory already sitting at the node.
type ReplenishmentHop struct {
	Node          NodeID
	TransitDays   int
	HasInventory  bool
	InventoryQty  decimal.Decimal
	EffectiveDays int // TransitDays after inventory coverage is netted out
}

// ReplenishmentPath is one loop-free route from a producing node to a
// destination for a single product.
type ReplenishmentPath struct {
	Origin        NodeID
	TotalDays     int // sum of every hop's TransitDays, ignoring inventory
	EffectiveDays int // sum of every hop's EffectiveDays
	Path          []NodeID
	Hops          []ReplenishmentHop
	SlowestHop    NodeID // destination-side node of the single longest transit leg
}

// LeadTimeAnalysis is every loop-free path found to one (destination,
// product) pair, ranked worst-first so the caller can see how exposed a
// destination is if its primary route is disrupted.
type LeadTimeAnalysis struct {
	Product      ProductID
	Destination  NodeID
	ShortestPath *ReplenishmentPath // the path to plan against
	WorstPaths   []ReplenishmentPath
	TotalPaths   int
}

// LeadTimeAnalyzer walks the preprocessed network backwards from a
// destination to find every way a product can reach it, so a caller can
// judge whether the horizon is long enough to cover replenishment before
// ever building the MILP.
type LeadTimeAnalyzer struct {
	req *SolveRequest
	nm  *NetworkModel
}

// NewLeadTimeAnalyzer builds an analyzer over an already-preprocessed
// network.
func NewLeadTimeAnalyzer(req *SolveRequest, nm *NetworkModel) *LeadTimeAnalyzer {
	return &LeadTimeAnalyzer{req: req, nm: nm}
}

// AnalyzeDestination enumerates every loop-free path reaching dest for
// product, and returns the topN worst (longest effective lead time)
// alongside the single shortest.
func (a *LeadTimeAnalyzer) AnalyzeDestination(dest NodeID, product ProductID, topN int) *LeadTimeAnalysis {
	allPaths := a.findAllPaths(dest, product, dest, map[NodeID]bool{dest: true})

	if len(allPaths) == 0 {
		return &LeadTimeAnalysis{Product: product, Destination: dest}
	}

	sort.Slice(allPaths, func(i, j int) bool {
		if allPaths[i].EffectiveDays != allPaths[j].EffectiveDays {
			return allPaths[i].EffectiveDays > allPaths[j].EffectiveDays
		}
		return allPaths[i].TotalDays > allPaths[j].TotalDays
	})

	worst := allPaths
	if len(allPaths) > topN {
		worst = allPaths[:topN]
	}

	shortest := allPaths[len(allPaths)-1]

	return &LeadTimeAnalysis{
		Product:      product,
		Destination:  dest,
		ShortestPath: &shortest,
		WorstPaths:   worst,
		TotalPaths:   len(allPaths),
	}
}

// findAllPaths walks nm.LegsTo backwards from cur, accumulating hops, until
// it reaches a producing node (a path's origin) or exhausts untried
// predecessors. visited prevents the routing cycles BuildNetwork already
// flagged from producing infinite paths here.
func (a *LeadTimeAnalyzer) findAllPaths(dest NodeID, product ProductID, cur NodeID, visited map[NodeID]bool) []ReplenishmentPath {
	node := a.nm.Nodes[cur]

	var basePaths []ReplenishmentPath
	if node.CanProduce {
		basePaths = append(basePaths, ReplenishmentPath{
			Origin: cur,
			Path:   []NodeID{cur},
		})
	}

	for _, leg := range a.nm.LegsTo[cur] {
		if visited[leg.Origin] {
			continue
		}
		nextVisited := make(map[NodeID]bool, len(visited)+1)
		for k := range visited {
			nextVisited[k] = true
		}
		nextVisited[leg.Origin] = true

		upstream := a.findAllPaths(dest, product, leg.Origin, nextVisited)
		if len(upstream) == 0 {
			continue
		}

		hasInv, invQty, effectiveDays := a.coverageFor(cur, product, leg.Route.TransitDays)
		hop := ReplenishmentHop{
			Node:          cur,
			TransitDays:   leg.Route.TransitDays,
			HasInventory:  hasInv,
			InventoryQty:  invQty,
			EffectiveDays: effectiveDays,
		}

		for _, up := range upstream {
			slowest := hop.Node
			if hop.TransitDays < slowestTransitDays(up.SlowestHop, up.Hops) {
				slowest = up.SlowestHop
			}
			basePaths = append(basePaths, ReplenishmentPath{
				Origin:        up.Origin,
				TotalDays:     up.TotalDays + hop.TransitDays,
				EffectiveDays: up.EffectiveDays + hop.EffectiveDays,
				Path:          append(append([]NodeID{}, up.Path...), cur),
				Hops:          append(append([]ReplenishmentHop{}, up.Hops...), hop),
				SlowestHop:    slowest,
			})
		}
	}

	return basePaths
}

// coverageFor reports whether node carries on-hand inventory of product at
// horizon start. Any positive quantity counts as full coverage and nets
// transitDays to 0; with none, transitDays is returned unchanged. The
// quantity is not weighed against demand, since the analyzer is a planning
// diagnostic rather than an allocator (AllocateFEFO owns the precise split).
func (a *LeadTimeAnalyzer) coverageFor(node NodeID, product ProductID, transitDays int) (bool, decimal.Decimal, int) {
	var total decimal.Decimal
	for _, rec := range a.req.InitialInventory {
		if rec.Node == node && rec.Product == product {
			total = total.Add(rec.Quantity)
		}
	}
	if total.IsPositive() {
		return true, total, 0
	}
	return false, decimal.Zero, transitDays
}

func slowestTransitDays(slowestNode NodeID, hops []ReplenishmentHop) int {
	for _, h := range hops {
		if h.Node == slowestNode {
			return h.TransitDays
		}
	}
	return 0
}

// Summary renders a one-line description of the worst-case path, suitable
// for a pre-solve warning.
func (la *LeadTimeAnalysis) Summary() string {
	if la.ShortestPath == nil {
		return fmt.Sprintf("no producing node can reach %s for %s", la.Destination, la.Product)
	}
	worst := la.WorstPaths[0]
	return fmt.Sprintf("%s/%s: shortest replenishment %d days, worst-case %d days via %s (slowest hop into %s)",
		la.Destination, la.Product, la.ShortestPath.EffectiveDays, worst.EffectiveDays, worst.Origin, worst.SlowestHop)
}

// ExceedsHorizon reports whether even the shortest replenishment path would
// miss dueDate if production began at horizonStart.
func (la *LeadTimeAnalysis) ExceedsHorizon(horizonStart, dueDate time.Time) bool {
	if la.ShortestPath == nil {
		return true
	}
	return daysBetween(horizonStart, dueDate) < la.ShortestPath.EffectiveDays
}
