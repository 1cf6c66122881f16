// Package swpdo implements the sliding-window perishable production-distribution
// optimizer: a mixed-integer linear program that jointly plans production,
// storage-state transitions, inter-node shipments, truck loading, and demand
// satisfaction over a multi-week horizon for a perishable, multi-state
// inventory network.
package swpdo

import (
	"time"

	"github.com/shopspring/decimal"
)

// NodeID and ProductID are stable string identifiers assigned by the caller;
// the core never generates or resolves them.
type NodeID string

// ProductID identifies a SKU in the Product catalog.
type ProductID string

// StorageState is one of the three states a unit of inventory can occupy.
type StorageState int

const (
	Ambient StorageState = iota
	Frozen
	Thawed
)

func (s StorageState) String() string {
	switch s {
	case Ambient:
		return "ambient"
	case Frozen:
		return "frozen"
	case Thawed:
		return "thawed"
	default:
		return "unknown"
	}
}

// Canonical constants from spec.md §3.
const (
	DefaultShelfLifeAmbientDays = 17
	DefaultShelfLifeFrozenDays  = 120
	DefaultShelfLifeThawedDays  = 14

	UnitsPerCase   = 10
	UnitsPerPallet = 320

	// MinShortagePenaltyMultiple is the minimum ratio of shortage penalty to
	// unit production cost (spec.md §4.5 / §7).
	MinShortagePenaltyMultiple = 4

	// DefaultWasteCostMultiple is the supplemented default (SPEC_FULL.md).
	DefaultWasteCostMultiple = 10

	// DefaultLaborMinimumPaidHours is the supplemented default floor applied
	// on non-fixed labor days with nonzero usage (SPEC_FULL.md).
	DefaultLaborMinimumPaidHours = 4.0
)

// Node is a physical location in the distribution network.
type Node struct {
	ID NodeID

	CanProduce      bool
	CanStoreAmbient bool
	CanStoreFrozen  bool
	CanThaw         bool
	CanFreeze       bool
	IsDemandPoint   bool

	// Capacity limits by state, in pallets. A zero value means unlimited;
	// callers that want a hard zero capacity should omit the capability flag
	// instead.
	StorageCapacityPallets map[StorageState]int
}

// ShelfLife holds the three per-state shelf-life limits for a product, in
// days.
type ShelfLife struct {
	AmbientDays int
	FrozenDays  int
	ThawedDays  int
}

// DefaultShelfLife returns the canonical default triple from spec.md §3.
func DefaultShelfLife() ShelfLife {
	return ShelfLife{
		AmbientDays: DefaultShelfLifeAmbientDays,
		FrozenDays:  DefaultShelfLifeFrozenDays,
		ThawedDays:  DefaultShelfLifeThawedDays,
	}
}

// Days returns the shelf-life limit for the given state.
func (l ShelfLife) Days(s StorageState) int {
	switch s {
	case Ambient:
		return l.AmbientDays
	case Frozen:
		return l.FrozenDays
	case Thawed:
		return l.ThawedDays
	default:
		return 0
	}
}

// Product is a SKU.
type Product struct {
	ID            ProductID
	ShelfLife     ShelfLife
	UnitsPerMix   int
	UnitsPerCase  int
	UnitsPerPallet int
	UnitCost      decimal.Decimal
}

// Route is a directed transport edge that fixes the arrival state of shipped
// inventory.
type Route struct {
	Origin      NodeID
	Destination NodeID
	ArrivalState StorageState
	TransitDays int
	CostPerUnit decimal.Decimal
}

// TruckSchedule is a recurring truck service between two nodes.
type TruckSchedule struct {
	ID                string
	Origin            NodeID
	Destination       NodeID
	AllowedWeekdays    map[time.Weekday]bool
	PalletCapacity     int
	FixedCostPerDeparture decimal.Decimal
}

// LaborDay describes the labor regime in effect on a calendar date.
type LaborDay struct {
	Date              time.Time
	FixedHours        float64 // 0 on weekends/holidays, typically 12 on weekdays
	RegularRate       decimal.Decimal
	OvertimeRate      decimal.Decimal
	NonFixedRate      decimal.Decimal
	MaxHours          float64
}

// CostStructure holds the scalar cost rates used by the objective (spec.md §4.6).
type CostStructure struct {
	ProductionCostPerUnit decimal.Decimal

	// ShortagePenaltyPerUnit must be >= MinShortagePenaltyMultiple times the
	// production cost of every product in the catalog; enforced at build time.
	ShortagePenaltyPerUnit decimal.Decimal

	StorageCostPerPalletDayFrozen  decimal.Decimal
	StorageCostPerPalletDayAmbient decimal.Decimal
	StorageCostFixedPerPallet      decimal.Decimal

	ChangeoverCostPerStart  decimal.Decimal
	ChangeoverWasteUnits    decimal.Decimal
	WasteCostMultiplier     decimal.Decimal

	ProductionRateUnitsPerHour decimal.Decimal
}

// ForecastEntry is a single (destination, product, delivery_date, quantity)
// demand record.
type ForecastEntry struct {
	Destination  NodeID
	Product      ProductID
	DeliveryDate time.Time
	Quantity     decimal.Decimal
}

// InventoryRecord is a single initial-inventory observation at horizon start.
type InventoryRecord struct {
	Node            NodeID
	Product         ProductID
	State           StorageState
	Quantity        decimal.Decimal
	CanonicalEntryDate time.Time
}

// Horizon is the inclusive planning window, in calendar days.
type Horizon struct {
	Start time.Time
	End   time.Time
}

// Days returns the inclusive list of calendar dates in the horizon.
func (h Horizon) Days() []time.Time {
	var days []time.Time
	for d := h.Start; !d.After(h.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether t falls within [Start, End].
func (h Horizon) Contains(t time.Time) bool {
	return !t.Before(h.Start) && !t.After(h.End)
}

// SolverOptions configures the MILP backend (spec.md §6, §4.8).
type SolverOptions struct {
	Name            string
	TimeLimitSeconds float64
	MIPGap          float64
	Warmstart       bool
	Seed            int64
}

// Options is the recognized solve configuration (spec.md §6).
type Options struct {
	AllowShortages         bool
	UsePalletTracking      bool
	UseTruckPalletTracking bool
	LaborMinimumPaidHours  float64
	Solver                 SolverOptions
}

// DefaultOptions returns the spec's defaults.
func DefaultOptions() Options {
	return Options{
		AllowShortages:         true,
		UsePalletTracking:      true,
		UseTruckPalletTracking: true,
		LaborMinimumPaidHours:  DefaultLaborMinimumPaidHours,
		Solver: SolverOptions{
			Name:             "swpdo-branch-and-bound",
			TimeLimitSeconds: 60,
			MIPGap:           0.01,
			Warmstart:        false,
		},
	}
}

// SolveRequest is the single typed input record the core consumes
// (spec.md §6). Everything outside of it — spreadsheet parsing, alias
// resolution, dashboards, persistence — is out of scope (spec.md §1).
type SolveRequest struct {
	Horizon          Horizon
	Nodes            []Node
	Routes           []Route
	Trucks           []TruckSchedule
	Products         map[ProductID]Product
	LaborCalendar    map[string]LaborDay // keyed by date in "2006-01-02" form
	CostStructure    CostStructure
	Forecast         []ForecastEntry
	InitialInventory []InventoryRecord
	Options          Options
}

// TerminationStatus is the normalized solver outcome (spec.md §6, §4.8, §5).
type TerminationStatus int

const (
	StatusUnknown TerminationStatus = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
	StatusTerminatedByUser
)

func (s TerminationStatus) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusTimeLimit:
		return "TIME_LIMIT"
	case StatusTerminatedByUser:
		return "TERMINATED_BY_USER"
	default:
		return "UNKNOWN"
	}
}

// CostBreakdown itemizes the objective value by category (spec.md §6).
type CostBreakdown struct {
	Labor         decimal.Decimal
	Production    decimal.Decimal
	Transport     decimal.Decimal
	StorageDaily  decimal.Decimal
	StorageEntry  decimal.Decimal
	Changeover    decimal.Decimal
	Shortage      decimal.Decimal
	Waste         decimal.Decimal
}

// Total sums every category.
func (c CostBreakdown) Total() decimal.Decimal {
	return c.Labor.Add(c.Production).Add(c.Transport).Add(c.StorageDaily).
		Add(c.StorageEntry).Add(c.Changeover).Add(c.Shortage).Add(c.Waste)
}

// AggregateSolution is the C5 Solver Adapter's output: the raw per-variable
// solve result before C6 turns it into batch allocations (spec.md §6).
type AggregateSolution struct {
	Status         TerminationStatus
	ObjectiveValue decimal.Decimal
	Costs          CostBreakdown

	Production     map[ProdKey]decimal.Decimal
	Inventory      map[InvKey]decimal.Decimal
	InTransit      map[TransitKey]decimal.Decimal
	DemandConsumed map[DemandKey]decimal.Decimal
	Shortage       map[DemandKey]decimal.Decimal
	Thaw           map[ProdKey]decimal.Decimal
	Freeze         map[ProdKey]decimal.Decimal

	SolveSeconds   float64
	MIPGapAchieved float64
	Warnings       []string
}

// Batch identifies one production event: a (node, product, date) with
// production[n,p,t] > 0 in the aggregate solution (spec.md §4.7).
// InitialQuantity is the full production quantity the batch started with,
// independent of however much of it has since been allocated, converted, or
// wasted.
type Batch struct {
	ID              string
	Node            NodeID
	Product         ProductID
	ProductionDate  time.Time
	InitialQuantity decimal.Decimal
}

// BatchFlowEvent is one of the movement, conversion, consumption, or
// disposal events a batch can experience (spec.md §6).
type BatchFlowEvent int

const (
	FlowProduce BatchFlowEvent = iota
	FlowShipDepart
	FlowShipArrive
	FlowThaw
	FlowFreeze
	FlowConsume
	FlowWaste
)

func (e BatchFlowEvent) String() string {
	switch e {
	case FlowProduce:
		return "produce"
	case FlowShipDepart:
		return "ship_depart"
	case FlowShipArrive:
		return "ship_arrive"
	case FlowThaw:
		return "thaw"
	case FlowFreeze:
		return "freeze"
	case FlowConsume:
		return "consume"
	case FlowWaste:
		return "waste"
	default:
		return "unknown"
	}
}

// BatchFlow is one traceable event in a batch's life: a quantity moving
// between locations, changing storage state, being consumed by demand, or
// written off as waste (spec.md §6, §4.7 step 4).
type BatchFlow struct {
	BatchID      string
	Date         time.Time
	EventType    BatchFlowEvent
	Quantity     decimal.Decimal
	FromLocation NodeID
	ToLocation   NodeID
	FromState    StorageState
	ToState      StorageState
}

// BatchAllocationEntry records that a quantity from Batch was consumed by
// demand at Destination on DeliveryDate, with the weighted age it carried at
// consumption (spec.md §4.7).
type BatchAllocationEntry struct {
	Batch        Batch
	Destination  NodeID
	DeliveryDate time.Time
	Quantity     decimal.Decimal
	WeightedAge  float64
}

// BatchAllocation is the C6 weighted-age FEFO post-processor's output.
// LocationHistory is the ordered (by date) projection of BatchFlows onto a
// single batch id, the per-batch traceability record spec.md §6 names
// location_history for.
type BatchAllocation struct {
	Entries         []BatchAllocationEntry
	BatchFlows      []BatchFlow
	LocationHistory map[string][]BatchFlow
	Warnings        []string
}

// dateKey formats a time.Time the way LaborCalendar and aggregate maps key
// their dates, so lookups are unambiguous across time zones.
func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
