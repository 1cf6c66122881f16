package swpdo

import (
	"time"

	"go.uber.org/zap"
)

// bigM is the fallback upper bound used for variables that have no tighter,
// domain-derived bound (e.g. no node storage capacity was supplied). It is
// intentionally large relative to any realistic bread-network day volume
// (spec.md scenarios top out around 10,000 units/day) without being so
// large it destabilizes the simplex tableau.
const bigM = 1e7

// ModelVars indexes every decision variable by its domain key, so the
// Solver Adapter (C5), the FEFO post-processor (C6), and the invariant
// checker (C7) can map a raw column value back to (node, product, state,
// date) without re-deriving the Model Builder's naming scheme.
type ModelVars struct {
	Production      map[ProdKey]int
	MixCount        map[ProdKey]int
	ProductProduced map[ProdKey]int
	Start           map[ProdKey]int
	Thaw            map[ProdKey]int
	Freeze          map[ProdKey]int

	Inventory   map[InvKey]int
	PalletCount map[InvKey]int
	PalletEntry map[InvKey]int

	InTransit map[TransitKey]int

	TruckLoad map[TruckLoadKey]int

	DemandConsumed map[DemandKey]int
	Shortage       map[DemandKey]int

	FixedHours    map[nodeDay]int
	OvertimeHours map[nodeDay]int
	NonFixedHours map[nodeDay]int
	NonFixedActive map[nodeDay]int
}

type nodeDay struct {
	Node NodeID
	Date time.Time
}

// dayTerms holds the variable-coefficient contributions to a single state's
// inflow and outflow on one day, keyed by column index. Built once per
// (node, product, state) and reused by both the mass-balance equality and
// the sliding-window inequality (spec.md §4.2), which share the same
// underlying flow definitions.
type dayTerms struct {
	inflow  map[int]float64
	outflow map[int]float64
}

// BuildModel instantiates every MILP variable and constraint described in
// spec.md §3-§4 (C4). It returns the backend-agnostic Problem plus the
// ModelVars lookup table needed to interpret a solution.
func BuildModel(req *SolveRequest, nm *NetworkModel, idx *IndexSet, logger *zap.Logger) (*Problem, *ModelVars, error) {
	p := NewProblem()
	mv := &ModelVars{
		Production:      make(map[ProdKey]int),
		MixCount:        make(map[ProdKey]int),
		ProductProduced: make(map[ProdKey]int),
		Start:           make(map[ProdKey]int),
		Thaw:            make(map[ProdKey]int),
		Freeze:          make(map[ProdKey]int),
		Inventory:       make(map[InvKey]int),
		PalletCount:     make(map[InvKey]int),
		PalletEntry:     make(map[InvKey]int),
		InTransit:       make(map[TransitKey]int),
		TruckLoad:       make(map[TruckLoadKey]int),
		DemandConsumed:  make(map[DemandKey]int),
		Shortage:        make(map[DemandKey]int),
		FixedHours:      make(map[nodeDay]int),
		OvertimeHours:   make(map[nodeDay]int),
		NonFixedHours:   make(map[nodeDay]int),
		NonFixedActive:  make(map[nodeDay]int),
	}

	b := &modelBuilder{req: req, nm: nm, idx: idx, p: p, mv: mv, logger: logger}
	if err := b.build(); err != nil {
		return nil, nil, err
	}
	return p, mv, nil
}

type modelBuilder struct {
	req    *SolveRequest
	nm     *NetworkModel
	idx    *IndexSet
	p      *Problem
	mv     *ModelVars
	logger *zap.Logger
}

func (b *modelBuilder) build() error {
	for _, k := range b.idx.ProductionKeys {
		b.mv.Production[k] = b.p.AddVar(varKey("production", string(k.Node), string(k.Product), dateKey(k.Date)), Continuous, 0, bigM)
	}
	for _, k := range b.idx.MixKeys {
		b.mv.MixCount[k] = b.p.AddVar(varKey("mix_count", string(k.Node), string(k.Product), dateKey(k.Date)), Integer, 0, bigM)
	}
	for _, k := range b.idx.ProductProducedKeys {
		b.mv.ProductProduced[k] = b.p.AddVar(varKey("product_produced", string(k.Node), string(k.Product), dateKey(k.Date)), Binary, 0, 1)
	}
	for _, k := range b.idx.StartKeys {
		b.mv.Start[k] = b.p.AddVar(varKey("start", string(k.Node), string(k.Product), dateKey(k.Date)), Binary, 0, 1)
	}
	for _, k := range b.idx.ThawKeys {
		b.mv.Thaw[k] = b.p.AddVar(varKey("thaw", string(k.Node), string(k.Product), dateKey(k.Date)), Continuous, 0, bigM)
	}
	for _, k := range b.idx.FreezeKeys {
		b.mv.Freeze[k] = b.p.AddVar(varKey("freeze", string(k.Node), string(k.Product), dateKey(k.Date)), Continuous, 0, bigM)
	}
	for _, k := range b.idx.InventoryKeys {
		upper := bigM
		if n, ok := b.nm.Nodes[k.Node]; ok {
			if cap, ok2 := n.StorageCapacityPallets[k.State]; ok2 && cap > 0 {
				upper = float64(cap) * float64(UnitsPerPallet)
			}
		}
		b.mv.Inventory[k] = b.p.AddVar(varKey("inventory", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)), Continuous, 0, upper)
	}
	for _, k := range b.idx.PalletCountKeys {
		b.mv.PalletCount[k] = b.p.AddVar(varKey("pallet_count", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)), Integer, 0, bigM)
	}
	for _, k := range b.idx.PalletEntryKeys {
		b.mv.PalletEntry[k] = b.p.AddVar(varKey("pallet_entry", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)), Integer, 0, bigM)
	}
	for _, k := range b.idx.TransitKeys {
		b.mv.InTransit[k] = b.p.AddVar(varKey("in_transit", string(k.Origin), string(k.Destination), string(k.Product), k.State.String(), dateKey(k.Depart)), Continuous, 0, bigM)
	}
	for _, k := range b.idx.TruckLoadKeys {
		cap := bigM
		for _, ti := range b.nm.TruckInstances {
			if ti.TruckID == k.TruckID && ti.Date.Equal(k.Date) {
				cap = float64(ti.PalletCapacity)
				break
			}
		}
		b.mv.TruckLoad[k] = b.p.AddVar(varKey("truck_pallet_load", k.TruckID, string(k.Product), dateKey(k.Date)), Integer, 0, cap)
	}
	for _, fe := range b.req.Forecast {
		k := DemandKey{Destination: fe.Destination, Product: fe.Product, Date: fe.DeliveryDate}
		qty, _ := fe.Quantity.Float64()
		b.mv.DemandConsumed[k] = b.p.AddVar(varKey("demand_consumed", string(k.Destination), string(k.Product), dateKey(k.Date)), Continuous, 0, qty)
		shortageUpper := qty
		if !b.req.Options.AllowShortages {
			shortageUpper = 0
		}
		b.mv.Shortage[k] = b.p.AddVar(varKey("shortage", string(k.Destination), string(k.Product), dateKey(k.Date)), Continuous, 0, shortageUpper)
	}

	b.buildLaborVars()

	if err := b.buildDemandConstraints(); err != nil {
		return err
	}
	if err := b.buildFlowConstraints(); err != nil {
		return err
	}
	b.buildMixAndIndicatorConstraints()
	b.buildLaborConstraints()
	b.buildPalletConstraints()
	b.buildTruckConstraints()
	b.buildObjective()

	if b.logger != nil {
		b.logger.Info("model built", zap.Int("variables", b.p.NumVars()), zap.Int("constraints", b.p.NumConstraints()))
	}
	return nil
}

func (b *modelBuilder) buildLaborVars() {
	for _, n := range b.nm.ProduceNodes {
		for _, d := range b.req.Horizon.Days() {
			nd := nodeDay{Node: n, Date: d}
			ld, ok := b.req.LaborCalendar[dateKey(d)]
			maxHours := 0.0
			fixedHours := 0.0
			if ok {
				maxHours = ld.MaxHours
				fixedHours = ld.FixedHours
			}
			b.mv.FixedHours[nd] = b.p.AddVar(varKey("fixed_hours", string(n), dateKey(d)), Continuous, 0, fixedHours)
			overtimeCap := maxHours - fixedHours
			if overtimeCap < 0 {
				overtimeCap = 0
			}
			b.mv.OvertimeHours[nd] = b.p.AddVar(varKey("overtime_hours", string(n), dateKey(d)), Continuous, 0, overtimeCap)
			nonFixedCap := 0.0
			if fixedHours == 0 {
				nonFixedCap = maxHours
			}
			b.mv.NonFixedHours[nd] = b.p.AddVar(varKey("non_fixed_hours", string(n), dateKey(d)), Continuous, 0, nonFixedCap)
			b.mv.NonFixedActive[nd] = b.p.AddVar(varKey("non_fixed_active", string(n), dateKey(d)), Binary, 0, 1)
		}
	}
}

func (b *modelBuilder) buildDemandConstraints() error {
	for _, fe := range b.req.Forecast {
		k := DemandKey{Destination: fe.Destination, Product: fe.Product, Date: fe.DeliveryDate}
		qty, _ := fe.Quantity.Float64()
		b.p.AddConstraint(
			varKey("demand_balance", string(k.Destination), string(k.Product), dateKey(k.Date)),
			map[int]float64{b.mv.DemandConsumed[k]: 1, b.mv.Shortage[k]: 1},
			EQ, qty,
		)
	}
	return nil
}

// buildFlowConstraints builds, per (node, product, state), the mass-balance
// equality (invariant 1) and the sliding-window shelf-life inequality
// (spec.md §4.2) sharing the same per-day inflow/outflow term sets.
func (b *modelBuilder) buildFlowConstraints() error {
	days := b.req.Horizon.Days()
	dayIndex := make(map[string]int, len(days))
	for i, d := range days {
		dayIndex[dateKey(d)] = i
	}

	// arrival/departure lookup: transit var index by (node, state, date key).
	arrivals := map[NodeID]map[StorageState]map[string][]int{}
	departures := map[NodeID]map[StorageState]map[string][]int{}
	addTo := func(m map[NodeID]map[StorageState]map[string][]int, n NodeID, s StorageState, dk string, idx int) {
		if m[n] == nil {
			m[n] = map[StorageState]map[string][]int{}
		}
		if m[n][s] == nil {
			m[n][s] = map[string][]int{}
		}
		m[n][s][dk] = append(m[n][s][dk], idx)
	}
	for k, vi := range b.mv.InTransit {
		arrivalDate := k.Arrival(routeTransitDays(b.nm, k.Origin, k.Destination, k.State))
		addTo(arrivals, k.Destination, k.State, dateKey(arrivalDate), vi)
		addTo(departures, k.Origin, k.State, dateKey(k.Depart), vi)
	}

	for _, n := range uniqueInvNodes(b.idx.InventoryKeys) {
		node := b.nm.Nodes[n]
		for _, pid := range uniqueInvProducts(b.idx.InventoryKeys, n) {
			for _, s := range []StorageState{Ambient, Frozen, Thawed} {
				if !hasInvKey(b.idx.InventoryKeys, n, pid, s) {
					continue
				}

				terms := make([]dayTerms, len(days))
				for i, d := range days {
					dk := dateKey(d)
					inflow := map[int]float64{}
					outflow := map[int]float64{}

					switch s {
					case Ambient:
						if node.CanProduce {
							if vi, ok := b.mv.Production[ProdKey{Node: n, Product: pid, Date: d}]; ok {
								inflow[vi] += 1
							}
						}
						if node.CanFreeze {
							if vi, ok := b.mv.Freeze[ProdKey{Node: n, Product: pid, Date: d}]; ok {
								outflow[vi] += 1
							}
						}
					case Frozen:
						if node.CanFreeze {
							if vi, ok := b.mv.Freeze[ProdKey{Node: n, Product: pid, Date: d}]; ok {
								inflow[vi] += 1
							}
						}
						if node.CanThaw {
							if vi, ok := b.mv.Thaw[ProdKey{Node: n, Product: pid, Date: d}]; ok {
								outflow[vi] += 1
							}
						}
					case Thawed:
						if node.CanThaw {
							if vi, ok := b.mv.Thaw[ProdKey{Node: n, Product: pid, Date: d}]; ok {
								inflow[vi] += 1
							}
						}
					}

					if node.IsDemandPoint && demandState(node) == s {
						if vi, ok := b.mv.DemandConsumed[DemandKey{Destination: n, Product: pid, Date: d}]; ok {
							outflow[vi] += 1
						}
					}

					for _, vi := range arrivals[n][s][dk] {
						inflow[vi] += 1
					}
					for _, vi := range departures[n][s][dk] {
						outflow[vi] += 1
					}

					terms[i] = dayTerms{inflow: inflow, outflow: outflow}
				}

				baseQty := 0.0
				var initialRecords []InventoryRecord
				for _, ir := range b.req.InitialInventory {
					if ir.Node == n && ir.Product == pid && ir.State == s {
						q, _ := ir.Quantity.Float64()
						baseQty += q
						initialRecords = append(initialRecords, ir)
					}
				}

				prod := b.req.Products[pid]
				shelfLife := prod.ShelfLife.Days(s)
				if shelfLife <= 0 {
					shelfLife = DefaultShelfLife().Days(s)
				}

				for i, d := range days {
					invKey := InvKey{Node: n, Product: pid, State: s, Date: d}
					invIdx, ok := b.mv.Inventory[invKey]
					if !ok {
						continue
					}

					// Mass balance (invariant 1).
					massTerms := map[int]float64{invIdx: 1}
					for vi, c := range terms[i].inflow {
						massTerms[vi] -= c
					}
					for vi, c := range terms[i].outflow {
						massTerms[vi] += c
					}
					rhs := 0.0
					if i == 0 {
						rhs = baseQty
					} else {
						prevKey := InvKey{Node: n, Product: pid, State: s, Date: days[i-1]}
						if prevIdx, ok := b.mv.Inventory[prevKey]; ok {
							massTerms[prevIdx] -= 1
						}
					}
					b.p.AddConstraint(varKey("mass_balance", string(n), string(pid), s.String(), dateKey(d)), massTerms, EQ, rhs)

					// Sliding-window shelf life (spec.md §4.2, central contribution).
					windowStart := i - shelfLife + 1
					windowTerms := map[int]float64{invIdx: 1}
					for w := windowStart; w <= i; w++ {
						if w < 0 || w >= len(days) {
							continue
						}
						for vi, c := range terms[w].inflow {
							windowTerms[vi] -= c
						}
						for vi, c := range terms[w].outflow {
							windowTerms[vi] += c
						}
					}
					windowStartDate := d.AddDate(0, 0, -(shelfLife - 1))
					windowConst := 0.0
					for _, ir := range initialRecords {
						entry := ir.CanonicalEntryDate
						if entry.IsZero() {
							entry = b.req.Horizon.Start
						}
						if !entry.Before(windowStartDate) && !entry.After(d) {
							q, _ := ir.Quantity.Float64()
							windowConst += q
						}
					}
					b.p.AddConstraint(varKey("sliding_window", string(n), string(pid), s.String(), dateKey(d)), windowTerms, LE, windowConst)
				}
			}
		}
	}
	return nil
}

func (b *modelBuilder) buildMixAndIndicatorConstraints() {
	for _, k := range b.idx.ProductionKeys {
		prod := b.req.Products[k.Product]
		upm := float64(prod.UnitsPerMix)
		if upm <= 0 {
			upm = 1
		}
		b.p.AddConstraint(varKey("mix_granularity", string(k.Node), string(k.Product), dateKey(k.Date)),
			map[int]float64{b.mv.Production[k]: 1, b.mv.MixCount[k]: -upm}, EQ, 0)

		b.p.AddConstraint(varKey("indicator_link", string(k.Node), string(k.Product), dateKey(k.Date)),
			map[int]float64{b.mv.Production[k]: 1, b.mv.ProductProduced[k]: -bigM}, LE, 0)

		// Reverse link: product_produced can't stay "on" for free on a day
		// with zero output. Without this, a day between two runs of the same
		// product is a free binary with no cost pressure either way, and a
		// solver can hold it at 1 to dodge a second start — cheaper than the
		// line genuinely being idle, but not a real production state.
		b.p.AddConstraint(varKey("indicator_reverse", string(k.Node), string(k.Product), dateKey(k.Date)),
			map[int]float64{b.mv.ProductProduced[k]: 1, b.mv.MixCount[k]: -1}, LE, 0)
	}

	for _, k := range b.idx.StartKeys {
		startIdx := b.mv.Start[k]
		curIdx := b.mv.ProductProduced[k]
		prevDate := k.Date.AddDate(0, 0, -1)
		prevKey := ProdKey{Node: k.Node, Product: k.Product, Date: prevDate}
		if prevIdx, ok := b.mv.ProductProduced[prevKey]; ok {
			b.p.AddConstraint(varKey("start_ge", string(k.Node), string(k.Product), dateKey(k.Date)),
				map[int]float64{startIdx: 1, curIdx: -1, prevIdx: 1}, GE, 0)
		} else {
			// First horizon day: no predecessor, so a start fires whenever
			// production happens (there is no "previous" state to compare to).
			b.p.AddConstraint(varKey("start_ge", string(k.Node), string(k.Product), dateKey(k.Date)),
				map[int]float64{startIdx: 1, curIdx: -1}, GE, 0)
		}
		b.p.AddConstraint(varKey("start_le", string(k.Node), string(k.Product), dateKey(k.Date)),
			map[int]float64{startIdx: 1, curIdx: -1}, LE, 0)
	}
}

func (b *modelBuilder) buildLaborConstraints() {
	rate, _ := b.req.CostStructure.ProductionRateUnitsPerHour.Float64()
	if rate <= 0 {
		rate = 1
	}
	for _, n := range b.nm.ProduceNodes {
		for _, d := range b.req.Horizon.Days() {
			nd := nodeDay{Node: n, Date: d}
			capTerms := map[int]float64{
				b.mv.FixedHours[nd]:    -rate,
				b.mv.OvertimeHours[nd]: -rate,
				b.mv.NonFixedHours[nd]: -rate,
			}
			for pid := range b.req.Products {
				if vi, ok := b.mv.Production[ProdKey{Node: n, Product: pid, Date: d}]; ok {
					capTerms[vi] += 1
				}
			}
			b.p.AddConstraint(varKey("labor_capacity", string(n), dateKey(d)), capTerms, LE, 0)

			b.p.AddConstraint(varKey("nonfixed_floor_lo", string(n), dateKey(d)),
				map[int]float64{b.mv.NonFixedHours[nd]: 1, b.mv.NonFixedActive[nd]: -b.req.Options.LaborMinimumPaidHours}, GE, 0)
			b.p.AddConstraint(varKey("nonfixed_floor_hi", string(n), dateKey(d)),
				map[int]float64{b.mv.NonFixedHours[nd]: 1, b.mv.NonFixedActive[nd]: -bigM}, LE, 0)
		}
	}
}

func (b *modelBuilder) buildPalletConstraints() {
	if !b.req.Options.UsePalletTracking {
		return
	}
	days := b.req.Horizon.Days()
	for _, k := range b.idx.PalletCountKeys {
		invIdx := b.mv.Inventory[k]
		pcIdx := b.mv.PalletCount[k]
		upp := float64(UnitsPerPallet)
		b.p.AddConstraint(varKey("pallet_ceiling_lo", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)),
			map[int]float64{pcIdx: upp, invIdx: -1}, GE, 0)
		b.p.AddConstraint(varKey("pallet_ceiling_hi", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)),
			map[int]float64{pcIdx: upp, invIdx: -1}, LE, float64(UnitsPerPallet-1))
	}

	dayIdx := map[string]int{}
	for i, d := range days {
		dayIdx[dateKey(d)] = i
	}
	for _, k := range b.idx.PalletEntryKeys {
		peIdx, ok := b.mv.PalletEntry[k]
		if !ok {
			continue
		}
		pcIdx := b.mv.PalletCount[k]
		i := dayIdx[dateKey(k.Date)]
		if i == 0 {
			b.p.AddConstraint(varKey("pallet_entry", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)),
				map[int]float64{peIdx: 1, pcIdx: -1}, GE, 0)
			continue
		}
		prevKey := InvKey{Node: k.Node, Product: k.Product, State: k.State, Date: days[i-1]}
		prevIdx, ok := b.mv.PalletCount[prevKey]
		terms := map[int]float64{peIdx: 1, pcIdx: -1}
		if ok {
			terms[prevIdx] = 1
		}
		b.p.AddConstraint(varKey("pallet_entry", string(k.Node), string(k.Product), k.State.String(), dateKey(k.Date)), terms, GE, 0)
	}
}

func (b *modelBuilder) buildTruckConstraints() {
	if !b.req.Options.UseTruckPalletTracking {
		return
	}
	// Capacity per truck instance.
	perTruck := map[string]map[int]float64{}
	for k, vi := range b.mv.TruckLoad {
		key := k.TruckID + "|" + dateKey(k.Date)
		if perTruck[key] == nil {
			perTruck[key] = map[int]float64{}
		}
		perTruck[key][vi] = 1
	}
	seen := map[string]bool{}
	for _, ti := range b.nm.TruckInstances {
		key := ti.TruckID + "|" + dateKey(ti.Date)
		if seen[key] {
			continue
		}
		seen[key] = true
		b.p.AddConstraint(varKey("truck_capacity", key), perTruck[key], LE, float64(ti.PalletCapacity))
	}

	// Coverage: pallets loaded across trucks on this (origin,dest,date) leg
	// must cover the in-transit volume departing that day (spec.md §4.4).
	legLoad := map[string]map[int]float64{}
	legKeyOf := func(o, d NodeID, date time.Time) string {
		return string(o) + "->" + string(d) + "@" + dateKey(date)
	}
	for _, ti := range b.nm.TruckInstances {
		key := legKeyOf(ti.Origin, ti.Destination, ti.Date)
		if legLoad[key] == nil {
			legLoad[key] = map[int]float64{}
		}
		for k, vi := range b.mv.TruckLoad {
			if k.TruckID == ti.TruckID && k.Date.Equal(ti.Date) {
				legLoad[key][vi] += float64(UnitsPerPallet)
			}
		}
	}
	legVolume := map[string]map[int]float64{}
	for k, vi := range b.mv.InTransit {
		key := legKeyOf(k.Origin, k.Destination, k.Depart)
		if legVolume[key] == nil {
			legVolume[key] = map[int]float64{}
		}
		legVolume[key][vi] += 1
	}
	for key, volTerms := range legVolume {
		terms := map[int]float64{}
		for vi, c := range legLoad[key] {
			terms[vi] += c
		}
		for vi, c := range volTerms {
			terms[vi] -= c
		}
		b.p.AddConstraint(varKey("truck_coverage", key), terms, GE, 0)
	}
}

func (b *modelBuilder) buildObjective() {
	prodRate, _ := b.req.CostStructure.ProductionCostPerUnit.Float64()
	for k, vi := range b.mv.Production {
		unitCost := prodRate
		if prod, ok := b.req.Products[k.Product]; ok {
			if uc, _ := prod.UnitCost.Float64(); uc > 0 {
				unitCost = uc
			}
		}
		b.p.AddObjTerm(vi, unitCost)
	}

	for k, vi := range b.mv.InTransit {
		for _, r := range b.req.Routes {
			if r.Origin == k.Origin && r.Destination == k.Destination && r.ArrivalState == k.State {
				cost, _ := r.CostPerUnit.Float64()
				b.p.AddObjTerm(vi, cost)
				break
			}
		}
	}

	storageFrozen, _ := b.req.CostStructure.StorageCostPerPalletDayFrozen.Float64()
	storageAmbient, _ := b.req.CostStructure.StorageCostPerPalletDayAmbient.Float64()
	storageFixed, _ := b.req.CostStructure.StorageCostFixedPerPallet.Float64()
	for k, vi := range b.mv.PalletCount {
		rate := storageAmbient
		if k.State == Frozen {
			rate = storageFrozen
		}
		b.p.AddObjTerm(vi, rate)
	}
	for _, vi := range b.mv.PalletEntry {
		b.p.AddObjTerm(vi, storageFixed)
	}

	changeoverCost, _ := b.req.CostStructure.ChangeoverCostPerStart.Float64()
	changeoverWasteUnits, _ := b.req.CostStructure.ChangeoverWasteUnits.Float64()
	for k, vi := range b.mv.Start {
		unitCost, _ := b.req.Products[k.Product].UnitCost.Float64()
		b.p.AddObjTerm(vi, changeoverCost+changeoverWasteUnits*unitCost)
	}

	shortagePenalty, _ := b.req.CostStructure.ShortagePenaltyPerUnit.Float64()
	for _, vi := range b.mv.Shortage {
		b.p.AddObjTerm(vi, shortagePenalty)
	}

	for nd, vi := range b.mv.FixedHours {
		ld := b.req.LaborCalendar[dateKey(nd.Date)]
		rate, _ := ld.RegularRate.Float64()
		b.p.AddObjTerm(vi, rate)
	}
	for nd, vi := range b.mv.OvertimeHours {
		ld := b.req.LaborCalendar[dateKey(nd.Date)]
		rate, _ := ld.OvertimeRate.Float64()
		b.p.AddObjTerm(vi, rate)
	}
	for nd, vi := range b.mv.NonFixedHours {
		ld := b.req.LaborCalendar[dateKey(nd.Date)]
		rate, _ := ld.NonFixedRate.Float64()
		b.p.AddObjTerm(vi, rate)
	}

	wasteMultiplier, _ := b.req.CostStructure.WasteCostMultiplier.Float64()
	if wasteMultiplier <= 0 {
		wasteMultiplier = DefaultWasteCostMultiple
	}
	lastDay := b.req.Horizon.End
	for k, vi := range b.mv.Inventory {
		if dateKey(k.Date) != dateKey(lastDay) {
			continue
		}
		unitCost, _ := b.req.Products[k.Product].UnitCost.Float64()
		b.p.AddObjTerm(vi, wasteMultiplier*unitCost)
	}
}

func routeTransitDays(nm *NetworkModel, origin, dest NodeID, state StorageState) int {
	for _, leg := range nm.LegsFrom[origin] {
		if leg.Destination == dest && leg.ArrivalState == state {
			return leg.Route.TransitDays
		}
	}
	return 0
}

func demandState(n Node) StorageState {
	if n.CanThaw {
		return Thawed
	}
	return Ambient
}

func uniqueInvNodes(keys []InvKey) []NodeID {
	seen := map[NodeID]bool{}
	var out []NodeID
	for _, k := range keys {
		if !seen[k.Node] {
			seen[k.Node] = true
			out = append(out, k.Node)
		}
	}
	return out
}

func uniqueInvProducts(keys []InvKey, n NodeID) []ProductID {
	seen := map[ProductID]bool{}
	var out []ProductID
	for _, k := range keys {
		if k.Node == n && !seen[k.Product] {
			seen[k.Product] = true
			out = append(out, k.Product)
		}
	}
	return out
}

func hasInvKey(keys []InvKey, n NodeID, p ProductID, s StorageState) bool {
	for _, k := range keys {
		if k.Node == n && k.Product == p && k.State == s {
			return true
		}
	}
	return false
}
