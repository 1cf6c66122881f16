package swpdo

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestWeightedAge(t *testing.T) {
	sl := ShelfLife{AmbientDays: 10, FrozenDays: 100, ThawedDays: 5}
	w := weightedAge(sl, 5, 0, 0)
	if w != 0.5 {
		t.Errorf("weightedAge = %v, want 0.5", w)
	}
	w = weightedAge(sl, 10, 0, 0)
	if w != 1.0 {
		t.Errorf("weightedAge at full ambient life = %v, want 1.0", w)
	}
	w = weightedAge(sl, 5, 50, 0)
	if w != 1.0 {
		t.Errorf("weightedAge combining two states = %v, want 1.0 (0.5+0.5)", w)
	}
}

func TestAllocateFEFOLocalConsumption(t *testing.T) {
	req := NewTestSolveRequest()
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}

	produceDate := d(2026, 1, 1)
	deliverDate := d(2026, 1, 2)
	sol := &AggregateSolution{
		Production: map[ProdKey]decimal.Decimal{
			{Node: "store", Product: "white-loaf", Date: produceDate}: decimal.NewFromInt(100),
		},
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "store", Product: "white-loaf", Date: deliverDate}: decimal.NewFromInt(60),
		},
	}

	alloc, err := AllocateFEFO(req, nm, sol, nil)
	if err != nil {
		t.Fatalf("AllocateFEFO: %v", err)
	}
	if len(alloc.Entries) != 1 {
		t.Fatalf("expected 1 allocation entry, got %d", len(alloc.Entries))
	}
	if !alloc.Entries[0].Quantity.Equal(decimal.NewFromInt(60)) {
		t.Errorf("allocated quantity = %v, want 60", alloc.Entries[0].Quantity)
	}
	if len(alloc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", alloc.Warnings)
	}
}

func TestAllocateFEFOShortfallWarnsInsteadOfErroring(t *testing.T) {
	req := NewTestSolveRequest()
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}

	sol := &AggregateSolution{
		Production: map[ProdKey]decimal.Decimal{},
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "store", Product: "white-loaf", Date: d(2026, 1, 3)}: decimal.NewFromInt(60),
		},
	}

	alloc, err := AllocateFEFO(req, nm, sol, nil)
	if err != nil {
		t.Fatalf("AllocateFEFO: %v", err)
	}
	if len(alloc.Entries) != 0 {
		t.Errorf("expected no allocation entries with no production, got %d", len(alloc.Entries))
	}
	if len(alloc.Warnings) != 1 {
		t.Fatalf("expected 1 shortfall warning, got %d", len(alloc.Warnings))
	}
}

func TestAllocateFEFOPrefersOlderBatch(t *testing.T) {
	req := NewTestSolveRequest()
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}

	older := d(2026, 1, 1)
	newer := d(2026, 1, 2)
	deliver := d(2026, 1, 3)

	sol := &AggregateSolution{
		Production: map[ProdKey]decimal.Decimal{
			{Node: "store", Product: "white-loaf", Date: older}: decimal.NewFromInt(30),
			{Node: "store", Product: "white-loaf", Date: newer}: decimal.NewFromInt(30),
		},
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "store", Product: "white-loaf", Date: deliver}: decimal.NewFromInt(30),
		},
	}

	alloc, err := AllocateFEFO(req, nm, sol, nil)
	if err != nil {
		t.Fatalf("AllocateFEFO: %v", err)
	}
	if len(alloc.Entries) != 1 {
		t.Fatalf("expected exactly 1 allocation entry (fully served by the older batch), got %d", len(alloc.Entries))
	}
	if !alloc.Entries[0].Batch.ProductionDate.Equal(older) {
		t.Errorf("expected the older batch to be consumed first, got production date %v", alloc.Entries[0].Batch.ProductionDate)
	}
}

// TestAllocateFEFOCrossStateComparisonFavorsHigherWeightedAge reproduces
// spec.md §8 scenario 5: a batch frozen shortly after production decays
// against a 120-day frozen life, while a batch produced later but left
// ambient decays against a 17-day ambient life. The later, ambient batch
// can carry the higher weighted age at the moment of consumption and must
// be drawn down first, even though it is not the oldest by production date.
func TestAllocateFEFOCrossStateComparisonFavorsHigherWeightedAge(t *testing.T) {
	node := Node{
		ID: "outlet", CanStoreAmbient: true, CanStoreFrozen: true, CanFreeze: true, IsDemandPoint: true,
		StorageCapacityPallets: map[StorageState]int{Ambient: 100, Frozen: 100},
	}
	req := &SolveRequest{
		Horizon:  Horizon{Start: d(2026, 1, 1), End: d(2026, 1, 20)},
		Nodes:    []Node{node},
		Products: map[ProductID]Product{"white-loaf": NewTestProduct("white-loaf")},
	}
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}

	frozenBatchProduced := d(2026, 1, 1)
	freezeDate := d(2026, 1, 2)
	ambientBatchProduced := d(2026, 1, 10)
	demandDate := d(2026, 1, 20)

	sol := &AggregateSolution{
		Production: map[ProdKey]decimal.Decimal{
			{Node: "outlet", Product: "white-loaf", Date: frozenBatchProduced}:  decimal.NewFromInt(50),
			{Node: "outlet", Product: "white-loaf", Date: ambientBatchProduced}: decimal.NewFromInt(50),
		},
		Freeze: map[ProdKey]decimal.Decimal{
			{Node: "outlet", Product: "white-loaf", Date: freezeDate}: decimal.NewFromInt(50),
		},
		DemandConsumed: map[DemandKey]decimal.Decimal{
			{Destination: "outlet", Product: "white-loaf", Date: demandDate}: decimal.NewFromInt(30),
		},
	}

	alloc, err := AllocateFEFO(req, nm, sol, nil)
	if err != nil {
		t.Fatalf("AllocateFEFO: %v", err)
	}
	if len(alloc.Entries) != 1 {
		t.Fatalf("expected exactly 1 allocation entry, got %d", len(alloc.Entries))
	}
	// Frozen batch's weighted age at demandDate: 1/17 (one ambient day before
	// the freeze) + 18/120 (Jan2->Jan20 frozen) ~= 0.209.
	// Ambient batch's weighted age at demandDate: 10/17 (Jan10->Jan20) ~= 0.588.
	// The ambient batch decays faster and must be drawn down first.
	got := alloc.Entries[0].Batch.ProductionDate
	if !got.Equal(ambientBatchProduced) {
		t.Errorf("FEFO picked batch produced %v, want the later ambient batch %v (higher weighted age)", got, ambientBatchProduced)
	}
	if !alloc.Entries[0].Quantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("allocated quantity = %v, want 30", alloc.Entries[0].Quantity)
	}
}
