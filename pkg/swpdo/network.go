package swpdo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Leg is a single directed edge in the network: one route, carrying a fixed
// arrival state (spec.md §3, GLOSSARY).
type Leg struct {
	Origin       NodeID
	Destination  NodeID
	ArrivalState StorageState
	Route        Route
}

// TruckInstance is a concrete (truck, date) departure expanded from a
// TruckSchedule against the horizon (spec.md §3, §4.1).
type TruckInstance struct {
	TruckID     string
	Date        time.Time
	Origin      NodeID
	Destination NodeID
	PalletCapacity int
	FixedCost   decimal.Decimal
}

type reachKey struct {
	Origin, Destination NodeID
	Product              ProductID
	State                StorageState
}

// NetworkModel is the Network Pre-Processor's output (C2, spec.md §4.1).
type NetworkModel struct {
	Nodes map[NodeID]Node

	ProduceNodes  []NodeID
	FreezeNodes   []NodeID
	ThawNodes     []NodeID
	DemandNodes   []NodeID

	StorageNodesByState map[StorageState][]NodeID

	LegsFrom map[NodeID][]Leg
	LegsTo   map[NodeID][]Leg

	TruckInstances []TruckInstance

	// CycleWarnings names routing cycles detected by Tarjan SCC; these are
	// never fatal (a hub shipping back to a producer is unusual but not
	// invalid) but are surfaced so a caller can sanity-check the topology.
	CycleWarnings []string

	reach map[reachKey]bool
}

// Reachable reports whether product p can arrive at dest in state s having
// departed from origin, per the precomputed reachability table.
func (n *NetworkModel) Reachable(origin, dest NodeID, p ProductID, s StorageState) bool {
	return n.reach[reachKey{origin, dest, p, s}]
}

// BuildNetwork derives the network pre-processor's outputs from the raw
// domain model. It is a pure function of req; it performs no validation of
// product/node referential integrity beyond what is needed to build the
// adjacency (that is C7's job, run separately at the pre-build gate).
func BuildNetwork(req *SolveRequest, logger *zap.Logger) (*NetworkModel, error) {
	nm := &NetworkModel{
		Nodes:               make(map[NodeID]Node, len(req.Nodes)),
		StorageNodesByState: make(map[StorageState][]NodeID),
		LegsFrom:            make(map[NodeID][]Leg),
		LegsTo:              make(map[NodeID][]Leg),
		reach:               make(map[reachKey]bool),
	}

	nodeIndex := make(map[NodeID]int64, len(req.Nodes))
	g := simple.NewDirectedGraph()

	for i, n := range req.Nodes {
		nm.Nodes[n.ID] = n
		id := int64(i)
		nodeIndex[n.ID] = id
		g.AddNode(simple.Node(id))

		if n.CanProduce {
			nm.ProduceNodes = append(nm.ProduceNodes, n.ID)
		}
		if n.CanFreeze {
			nm.FreezeNodes = append(nm.FreezeNodes, n.ID)
		}
		if n.CanThaw {
			nm.ThawNodes = append(nm.ThawNodes, n.ID)
		}
		if n.IsDemandPoint {
			nm.DemandNodes = append(nm.DemandNodes, n.ID)
		}
		if n.CanStoreAmbient {
			nm.StorageNodesByState[Ambient] = append(nm.StorageNodesByState[Ambient], n.ID)
		}
		if n.CanStoreFrozen {
			nm.StorageNodesByState[Frozen] = append(nm.StorageNodesByState[Frozen], n.ID)
		}
		// Thawed storage is implied wherever thaw is allowed or a frozen
		// route can arrive and be thawed on receipt; conservatively mirror
		// CanThaw here, same as the ambient/frozen flags.
		if n.CanThaw {
			nm.StorageNodesByState[Thawed] = append(nm.StorageNodesByState[Thawed], n.ID)
		}
	}

	for _, r := range req.Routes {
		if _, ok := nm.Nodes[r.Origin]; !ok {
			return nil, &ConfigError{Rule: "route-origin-exists", Witness: fmt.Sprintf("route %s->%s references unknown origin", r.Origin, r.Destination)}
		}
		if _, ok := nm.Nodes[r.Destination]; !ok {
			return nil, &ConfigError{Rule: "route-destination-exists", Witness: fmt.Sprintf("route %s->%s references unknown destination", r.Origin, r.Destination)}
		}

		leg := Leg{Origin: r.Origin, Destination: r.Destination, ArrivalState: r.ArrivalState, Route: r}
		nm.LegsFrom[r.Origin] = append(nm.LegsFrom[r.Origin], leg)
		nm.LegsTo[r.Destination] = append(nm.LegsTo[r.Destination], leg)

		oid, did := nodeIndex[r.Origin], nodeIndex[r.Destination]
		if oid != did && !g.HasEdgeFromTo(oid, did) {
			g.SetEdge(simple.Edge{F: simple.Node(oid), T: simple.Node(did)})
		}

		for pid := range req.Products {
			destNode := nm.Nodes[r.Destination]
			if storageAllowed(destNode, r.ArrivalState) || destNode.IsDemandPoint {
				nm.reach[reachKey{r.Origin, r.Destination, pid, r.ArrivalState}] = true
			}
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) > 1 {
			ids := make([]NodeID, 0, len(scc))
			for _, gn := range scc {
				for nid, idx := range nodeIndex {
					if idx == gn.ID() {
						ids = append(ids, nid)
					}
				}
			}
			warning := fmt.Sprintf("routing cycle detected among nodes: %v", ids)
			nm.CycleWarnings = append(nm.CycleWarnings, warning)
			if logger != nil {
				logger.Warn("network preprocessor found a routing cycle", zap.Strings("nodes", toStrings(ids)))
			}
		}
	}

	nm.TruckInstances = expandTruckSchedules(req.Trucks, req.Horizon)

	if logger != nil {
		logger.Info("network preprocessed",
			zap.Int("nodes", len(nm.Nodes)),
			zap.Int("routes", len(req.Routes)),
			zap.Int("truck_instances", len(nm.TruckInstances)),
			zap.Int("cycle_warnings", len(nm.CycleWarnings)),
		)
	}

	return nm, nil
}

func storageAllowed(n Node, s StorageState) bool {
	switch s {
	case Ambient:
		return n.CanStoreAmbient
	case Frozen:
		return n.CanStoreFrozen
	case Thawed:
		return n.CanThaw || n.CanStoreAmbient
	default:
		return false
	}
}

// expandTruckSchedules produces the finite set of (truck_id, date) instances
// intersected with the horizon (spec.md §3, §4.1).
func expandTruckSchedules(trucks []TruckSchedule, h Horizon) []TruckInstance {
	var out []TruckInstance
	for _, ts := range trucks {
		for _, d := range h.Days() {
			if !ts.AllowedWeekdays[d.Weekday()] {
				continue
			}
			out = append(out, TruckInstance{
				TruckID:        ts.ID,
				Date:           d,
				Origin:         ts.Origin,
				Destination:    ts.Destination,
				PalletCapacity: ts.PalletCapacity,
				FixedCost:      ts.FixedCostPerDeparture,
			})
		}
	}
	return out
}

func toStrings(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
