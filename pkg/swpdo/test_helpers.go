package swpdo

import (
	"time"

	"github.com/shopspring/decimal"
)

// d builds a UTC date from a "2006-01-02" style Y/M/D triple, the way the
// teacher's tests build fixture dates (baseDate := time.Date(...)).
func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewTestNode returns a bakery node: produces, stores ambient, not a demand
// point.
func NewTestNode(id NodeID) Node {
	return Node{
		ID:              id,
		CanProduce:      true,
		CanStoreAmbient: true,
		StorageCapacityPallets: map[StorageState]int{
			Ambient: 100,
		},
	}
}

// NewTestStoreNode returns a demand-point node that only stores ambient
// stock.
func NewTestStoreNode(id NodeID) Node {
	return Node{
		ID:              id,
		CanStoreAmbient: true,
		IsDemandPoint:   true,
		StorageCapacityPallets: map[StorageState]int{
			Ambient: 100,
		},
	}
}

// NewTestProduct returns a single SKU with the canonical default shelf
// life.
func NewTestProduct(id ProductID) Product {
	return Product{
		ID:            id,
		ShelfLife:     DefaultShelfLife(),
		UnitsPerMix:   UnitsPerCase,
		UnitsPerCase:  UnitsPerCase,
		UnitsPerPallet: UnitsPerPallet,
		UnitCost:      decimal.NewFromFloat(1.0),
	}
}

// NewTestCostStructure returns a cost structure whose shortage penalty
// clears the minimum-multiple gate for NewTestProduct's unit cost.
func NewTestCostStructure() CostStructure {
	return CostStructure{
		ProductionCostPerUnit:          decimal.NewFromFloat(1.0),
		ShortagePenaltyPerUnit:         decimal.NewFromFloat(10.0),
		StorageCostPerPalletDayFrozen:  decimal.NewFromFloat(5.0),
		StorageCostPerPalletDayAmbient: decimal.NewFromFloat(2.0),
		StorageCostFixedPerPallet:      decimal.NewFromFloat(1.0),
		ChangeoverCostPerStart:         decimal.NewFromFloat(50.0),
		ChangeoverWasteUnits:           decimal.NewFromFloat(0),
		WasteCostMultiplier:            decimal.NewFromInt(DefaultWasteCostMultiple),
		ProductionRateUnitsPerHour:     decimal.NewFromFloat(100.0),
	}
}

// NewTestLaborCalendar builds a flat calendar over h with the same fixed
// shift every day, keyed the way SolveRequest.LaborCalendar expects.
func NewTestLaborCalendar(h Horizon, fixedHours, maxHours float64) map[string]LaborDay {
	cal := map[string]LaborDay{}
	for _, day := range h.Days() {
		cal[dateKey(day)] = LaborDay{
			Date:         day,
			FixedHours:   fixedHours,
			RegularRate:  decimal.NewFromFloat(20.0),
			OvertimeRate: decimal.NewFromFloat(30.0),
			NonFixedRate: decimal.NewFromFloat(25.0),
			MaxHours:     maxHours,
		}
	}
	return cal
}

// NewTestSolveRequest builds a minimal two-node, one-product, five-day
// network: a bakery that produces and a store a one-day route away that
// consumes all of it, the smallest network exercising production,
// transport, inventory, and demand in one pass.
func NewTestSolveRequest() *SolveRequest {
	horizon := Horizon{Start: d(2026, 1, 1), End: d(2026, 1, 5)}
	bakery := NewTestNode("bakery")
	store := NewTestStoreNode("store")
	product := NewTestProduct("white-loaf")

	route := Route{
		Origin:       "bakery",
		Destination:  "store",
		ArrivalState: Ambient,
		TransitDays:  1,
		CostPerUnit:  decimal.NewFromFloat(0.1),
	}

	forecast := []ForecastEntry{
		{Destination: "store", Product: "white-loaf", DeliveryDate: d(2026, 1, 3), Quantity: decimal.NewFromInt(200)},
		{Destination: "store", Product: "white-loaf", DeliveryDate: d(2026, 1, 4), Quantity: decimal.NewFromInt(200)},
	}

	opts := DefaultOptions()
	opts.Solver.TimeLimitSeconds = 5

	return &SolveRequest{
		Horizon:          horizon,
		Nodes:            []Node{bakery, store},
		Routes:           []Route{route},
		Trucks:           nil,
		Products:         map[ProductID]Product{"white-loaf": product},
		LaborCalendar:    NewTestLaborCalendar(horizon, 12, 16),
		CostStructure:    NewTestCostStructure(),
		Forecast:         forecast,
		InitialInventory: nil,
		Options:          opts,
	}
}
