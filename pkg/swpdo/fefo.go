package swpdo

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// batchLot is one physical, single-state portion of a production batch as
// the greedy allocator moves it through the network. A batch starts as one
// lot; a shipment or a state conversion that only moves part of its
// quantity splits off a new lot carrying the moved/converted portion, so
// two lots can share the same Batch identity while sitting in different
// states or locations.
//
// priorW is the weighted age already locked in by state segments the lot
// has completed; stateEntry is when the current segment began. A plain
// shipment (no state change) carries both across to the new location
// untouched; only a thaw/freeze conversion folds the completed segment
// into priorW and resets stateEntry to the conversion date (spec.md §4.7
// step 4: "the state-entry date for the new state ... resets the
// corresponding L term in W").
type batchLot struct {
	batch      Batch
	remaining  decimal.Decimal
	location   NodeID
	state      StorageState
	stateEntry time.Time
	priorW     float64
}

// lotWeightedAge is the weighted age (spec.md §4.7) a lot carries as of
// asOf, given the time already accrued in states before its current one.
func lotWeightedAge(sl ShelfLife, lot *batchLot, asOf time.Time) float64 {
	days := daysBetween(lot.stateEntry, asOf)
	switch lot.state {
	case Ambient:
		return lot.priorW + weightedAge(sl, days, 0, 0)
	case Frozen:
		return lot.priorW + weightedAge(sl, 0, days, 0)
	case Thawed:
		return lot.priorW + weightedAge(sl, 0, 0, days)
	default:
		return lot.priorW
	}
}

// AllocateFEFO is the C6 weighted-age FEFO post-processor (spec.md §4.7). It
// turns the aggregate, SKU-level solution into per-batch allocations using
// the weighted age W = a/L_A + f/L_F + theta/L_T, consuming the
// oldest-effective-age batch first for each flow, in three chronological
// passes over the solution's own flow families: shipments (in_transit),
// state conversions (thaw/freeze), then demand consumption. Shipments run
// first so a batch has physically "arrived" at its destination before a
// node-local conversion or a consumption event there can draw on it.
func AllocateFEFO(req *SolveRequest, nm *NetworkModel, sol *AggregateSolution, logger *zap.Logger) (*BatchAllocation, error) {
	alloc := &BatchAllocation{LocationHistory: map[string][]BatchFlow{}}
	addFlow := func(f BatchFlow) {
		alloc.BatchFlows = append(alloc.BatchFlows, f)
		alloc.LocationHistory[f.BatchID] = append(alloc.LocationHistory[f.BatchID], f)
	}

	lots := collectBatches(sol, addFlow)

	lots, err := applyShipments(req, nm, sol, lots, addFlow)
	if err != nil {
		return nil, err
	}
	lots, err = applyConversions(req, sol, lots, addFlow)
	if err != nil {
		return nil, err
	}

	demands := collectDemandEvents(sol)
	sort.Slice(demands, func(i, j int) bool {
		if !demands[i].date.Equal(demands[j].date) {
			return demands[i].date.Before(demands[j].date)
		}
		if demands[i].destination != demands[j].destination {
			return demands[i].destination < demands[j].destination
		}
		return demands[i].product < demands[j].product
	})

	for _, dmd := range demands {
		remaining := dmd.quantity
		if remaining.IsZero() || remaining.IsNegative() {
			continue
		}
		product, ok := req.Products[dmd.product]
		if !ok {
			return nil, &InvariantViolationError{
				Rule: "fefo-unknown-product",
				Witness: Witness{Node: dmd.destination, Product: dmd.product, Date: dateKey(dmd.date),
					Detail: "demand references a product absent from the catalog"},
			}
		}

		candidates := lotsAtNode(lots, dmd.destination, dmd.product)
		sortByWeightedAgeDesc(candidates, product.ShelfLife, dmd.date)

		for _, lot := range candidates {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if lot.remaining.LessThanOrEqual(decimal.Zero) {
				continue
			}
			w := lotWeightedAge(product.ShelfLife, lot, dmd.date)
			if w >= 1 {
				continue
			}
			take := lot.remaining
			if take.GreaterThan(remaining) {
				take = remaining
			}
			alloc.Entries = append(alloc.Entries, BatchAllocationEntry{
				Batch:        lot.batch,
				Destination:  dmd.destination,
				DeliveryDate: dmd.date,
				Quantity:     take,
				WeightedAge:  w,
			})
			addFlow(BatchFlow{
				BatchID: lot.batch.ID, Date: dmd.date, EventType: FlowConsume, Quantity: take,
				FromLocation: dmd.destination, ToLocation: dmd.destination,
				FromState: lot.state, ToState: lot.state,
			})
			lot.remaining = lot.remaining.Sub(take)
			remaining = remaining.Sub(take)
		}

		if remaining.GreaterThan(decimal.Zero) {
			msg := fmt.Sprintf("demand %s/%s/%s short %s units after FEFO allocation (no traceable batch within shelf life)",
				dmd.destination, dmd.product, dateKey(dmd.date), remaining.String())
			alloc.Warnings = append(alloc.Warnings, msg)
			if logger != nil {
				logger.Warn("fefo allocation shortfall", zap.String("detail", msg))
			}
		}
	}

	appendWasteFlows(req.Horizon.End, lots, addFlow)

	for id, flows := range alloc.LocationHistory {
		sort.SliceStable(flows, func(i, j int) bool { return flows[i].Date.Before(flows[j].Date) })
		alloc.LocationHistory[id] = flows
	}

	return alloc, nil
}

type demandEvent struct {
	destination NodeID
	product     ProductID
	date        time.Time
	quantity    decimal.Decimal
}

// collectBatches seeds one lot per production event, ambient from the
// start (production enters ambient inventory, per model.go's flow
// constraints), and records the produce event that opens every batch's
// location history.
func collectBatches(sol *AggregateSolution, addFlow func(BatchFlow)) []*batchLot {
	var out []*batchLot
	for k, qty := range sol.Production {
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		batch := Batch{
			ID:              fmt.Sprintf("%s|%s|%s", k.Node, k.Product, dateKey(k.Date)),
			Node:            k.Node,
			Product:         k.Product,
			ProductionDate:  k.Date,
			InitialQuantity: qty,
		}
		out = append(out, &batchLot{
			batch:      batch,
			remaining:  qty,
			location:   k.Node,
			state:      Ambient,
			stateEntry: k.Date,
		})
		addFlow(BatchFlow{
			BatchID: batch.ID, Date: k.Date, EventType: FlowProduce, Quantity: qty,
			FromLocation: k.Node, ToLocation: k.Node, FromState: Ambient, ToState: Ambient,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].batch.ID < out[j].batch.ID })
	return out
}

type shipment struct {
	origin      NodeID
	destination NodeID
	product     ProductID
	depart      time.Time
	arrival     time.Time
	state       StorageState
	quantity    decimal.Decimal
}

func collectShipments(nm *NetworkModel, sol *AggregateSolution) []shipment {
	var out []shipment
	for k, qty := range sol.InTransit {
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		transitDays := routeTransitDays(nm, k.Origin, k.Destination, k.State)
		out = append(out, shipment{
			origin: k.Origin, destination: k.Destination, product: k.Product,
			depart: k.Depart, arrival: k.Arrival(transitDays), state: k.State, quantity: qty,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].arrival.Equal(out[j].arrival) {
			return out[i].arrival.Before(out[j].arrival)
		}
		if out[i].destination != out[j].destination {
			return out[i].destination < out[j].destination
		}
		return out[i].product < out[j].product
	})
	return out
}

// applyShipments allocates every in_transit flow against origin-side lots,
// moving the consumed quantity (as a split-off lot when the shipment only
// takes part of a lot) to the destination without touching its state or
// accrued weighted age — a shipment fixes which state moves, it never
// converts one.
func applyShipments(req *SolveRequest, nm *NetworkModel, sol *AggregateSolution, lots []*batchLot, addFlow func(BatchFlow)) ([]*batchLot, error) {
	for _, sh := range collectShipments(nm, sol) {
		product, ok := req.Products[sh.product]
		if !ok {
			return nil, &InvariantViolationError{
				Rule: "fefo-unknown-product",
				Witness: Witness{Node: sh.origin, Product: sh.product, Date: dateKey(sh.depart),
					Detail: "shipment references a product absent from the catalog"},
			}
		}

		candidates := lotsAtState(lots, sh.origin, sh.product, sh.state)
		sortByWeightedAgeDesc(candidates, product.ShelfLife, sh.depart)

		remaining := sh.quantity
		for _, lot := range candidates {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if lot.remaining.LessThanOrEqual(decimal.Zero) {
				continue
			}
			take := lot.remaining
			if take.GreaterThan(remaining) {
				take = remaining
			}

			moving := lot
			if take.LessThan(lot.remaining) {
				lot.remaining = lot.remaining.Sub(take)
				moving = &batchLot{
					batch: lot.batch, remaining: take, location: sh.destination,
					state: lot.state, stateEntry: lot.stateEntry, priorW: lot.priorW,
				}
				lots = append(lots, moving)
			} else {
				lot.location = sh.destination
			}

			addFlow(BatchFlow{
				BatchID: moving.batch.ID, Date: sh.depart, EventType: FlowShipDepart, Quantity: take,
				FromLocation: sh.origin, ToLocation: sh.destination, FromState: sh.state, ToState: sh.state,
			})
			addFlow(BatchFlow{
				BatchID: moving.batch.ID, Date: sh.arrival, EventType: FlowShipArrive, Quantity: take,
				FromLocation: sh.origin, ToLocation: sh.destination, FromState: sh.state, ToState: sh.state,
			})
			remaining = remaining.Sub(take)
		}

		if remaining.GreaterThan(decimal.Zero) {
			return nil, &InvariantViolationError{
				Rule: "fefo-unshippable-flow",
				Witness: Witness{Node: sh.origin, Product: sh.product, Date: dateKey(sh.depart),
					Detail: fmt.Sprintf("shipment %s->%s of %s %s units short %s (no eligible %s batch at origin)",
						sh.origin, sh.destination, sh.quantity.String(), sh.product, remaining.String(), sh.state.String())},
			}
		}
	}
	return lots, nil
}

type conversion struct {
	node      NodeID
	product   ProductID
	date      time.Time
	quantity  decimal.Decimal
	event     BatchFlowEvent
	fromState StorageState
	toState   StorageState
}

func collectConversions(sol *AggregateSolution) []conversion {
	var out []conversion
	for k, qty := range sol.Freeze {
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		out = append(out, conversion{node: k.Node, product: k.Product, date: k.Date, quantity: qty,
			event: FlowFreeze, fromState: Ambient, toState: Frozen})
	}
	for k, qty := range sol.Thaw {
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		out = append(out, conversion{node: k.Node, product: k.Product, date: k.Date, quantity: qty,
			event: FlowThaw, fromState: Frozen, toState: Thawed})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].date.Equal(out[j].date) {
			return out[i].date.Before(out[j].date)
		}
		if out[i].event != out[j].event {
			return out[i].event < out[j].event
		}
		if out[i].node != out[j].node {
			return out[i].node < out[j].node
		}
		return out[i].product < out[j].product
	})
	return out
}

// applyConversions allocates every thaw/freeze flow against the oldest
// weighted-age lot(s) currently in the source state at that node (spec.md
// §4.7 step 4), splitting a lot when only part of it converts and resetting
// the converted portion's state-entry clock to the conversion date.
func applyConversions(req *SolveRequest, sol *AggregateSolution, lots []*batchLot, addFlow func(BatchFlow)) ([]*batchLot, error) {
	for _, conv := range collectConversions(sol) {
		product, ok := req.Products[conv.product]
		if !ok {
			return nil, &InvariantViolationError{
				Rule: "fefo-unknown-product",
				Witness: Witness{Node: conv.node, Product: conv.product, Date: dateKey(conv.date),
					Detail: "conversion references a product absent from the catalog"},
			}
		}

		candidates := lotsAtState(lots, conv.node, conv.product, conv.fromState)
		sortByWeightedAgeDesc(candidates, product.ShelfLife, conv.date)

		remaining := conv.quantity
		for _, lot := range candidates {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if lot.remaining.LessThanOrEqual(decimal.Zero) {
				continue
			}
			take := lot.remaining
			if take.GreaterThan(remaining) {
				take = remaining
			}
			accrued := lotWeightedAge(product.ShelfLife, lot, conv.date)

			converted := lot
			if take.LessThan(lot.remaining) {
				lot.remaining = lot.remaining.Sub(take)
				converted = &batchLot{
					batch: lot.batch, remaining: take, location: conv.node,
					state: conv.toState, stateEntry: conv.date, priorW: accrued,
				}
				lots = append(lots, converted)
			} else {
				lot.priorW = accrued
				lot.state = conv.toState
				lot.stateEntry = conv.date
			}

			addFlow(BatchFlow{
				BatchID: converted.batch.ID, Date: conv.date, EventType: conv.event, Quantity: take,
				FromLocation: conv.node, ToLocation: conv.node, FromState: conv.fromState, ToState: conv.toState,
			})
			remaining = remaining.Sub(take)
		}

		if remaining.GreaterThan(decimal.Zero) {
			return nil, &InvariantViolationError{
				Rule: "fefo-unconvertible-flow",
				Witness: Witness{Node: conv.node, Product: conv.product, Date: dateKey(conv.date),
					Detail: fmt.Sprintf("%s[%s,%s,%s] converts %s units short %s (no eligible %s batch available)",
						conv.event, conv.node, conv.product, dateKey(conv.date), conv.quantity.String(), remaining.String(), conv.fromState.String())},
			}
		}
	}
	return lots, nil
}

// appendWasteFlows closes the ledger on whatever quantity no shipment,
// conversion, or consumption event ever claimed: it is booked as waste at
// wherever it last sat, dated at horizon end.
func appendWasteFlows(horizonEnd time.Time, lots []*batchLot, addFlow func(BatchFlow)) {
	for _, lot := range lots {
		if lot.remaining.LessThanOrEqual(decimal.Zero) {
			continue
		}
		addFlow(BatchFlow{
			BatchID: lot.batch.ID, Date: horizonEnd, EventType: FlowWaste, Quantity: lot.remaining,
			FromLocation: lot.location, ToLocation: lot.location, FromState: lot.state, ToState: lot.state,
		})
		lot.remaining = decimal.Zero
	}
}

func collectDemandEvents(sol *AggregateSolution) []demandEvent {
	var out []demandEvent
	for k, qty := range sol.DemandConsumed {
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}
		out = append(out, demandEvent{destination: k.Destination, product: k.Product, date: k.Date, quantity: qty})
	}
	return out
}

func lotsAtState(lots []*batchLot, node NodeID, product ProductID, state StorageState) []*batchLot {
	var out []*batchLot
	for _, lot := range lots {
		if lot.location == node && lot.batch.Product == product && lot.state == state && lot.remaining.GreaterThan(decimal.Zero) {
			out = append(out, lot)
		}
	}
	return out
}

// lotsAtNode matches demand consumption candidates by location and product
// only, not state: spec.md §8 scenario 5 draws FEFO comparisons across
// batches the same node holds in different states (e.g. one frozen, one
// ambient), picking whichever carries the higher weighted age.
func lotsAtNode(lots []*batchLot, node NodeID, product ProductID) []*batchLot {
	var out []*batchLot
	for _, lot := range lots {
		if lot.location == node && lot.batch.Product == product && lot.remaining.GreaterThan(decimal.Zero) {
			out = append(out, lot)
		}
	}
	return out
}

// sortByWeightedAgeDesc orders candidates oldest-effective-age first
// (spec.md §4.7), breaking ties by production date then batch id.
func sortByWeightedAgeDesc(cands []*batchLot, sl ShelfLife, asOf time.Time) {
	sort.Slice(cands, func(i, j int) bool {
		wi := lotWeightedAge(sl, cands[i], asOf)
		wj := lotWeightedAge(sl, cands[j], asOf)
		if wi != wj {
			return wi > wj
		}
		if !cands[i].batch.ProductionDate.Equal(cands[j].batch.ProductionDate) {
			return cands[i].batch.ProductionDate.Before(cands[j].batch.ProductionDate)
		}
		return cands[i].batch.ID < cands[j].batch.ID
	})
}

func weightedAge(sl ShelfLife, ambientDays, frozenDays, thawedDays int) float64 {
	var w float64
	if sl.AmbientDays > 0 {
		w += float64(ambientDays) / float64(sl.AmbientDays)
	}
	if sl.FrozenDays > 0 {
		w += float64(frozenDays) / float64(sl.FrozenDays)
	}
	if sl.ThawedDays > 0 {
		w += float64(thawedDays) / float64(sl.ThawedDays)
	}
	return w
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
