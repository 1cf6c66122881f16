package swpdo

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestShelfLifeDays(t *testing.T) {
	sl := DefaultShelfLife()
	cases := []struct {
		state StorageState
		want  int
	}{
		{Ambient, DefaultShelfLifeAmbientDays},
		{Frozen, DefaultShelfLifeFrozenDays},
		{Thawed, DefaultShelfLifeThawedDays},
	}
	for _, c := range cases {
		t.Run(c.state.String(), func(t *testing.T) {
			if got := sl.Days(c.state); got != c.want {
				t.Errorf("Days(%v) = %d, want %d", c.state, got, c.want)
			}
		})
	}
}

func TestHorizonDaysAndContains(t *testing.T) {
	h := Horizon{Start: d(2026, 1, 1), End: d(2026, 1, 3)}
	days := h.Days()
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if !h.Contains(d(2026, 1, 2)) {
		t.Errorf("expected horizon to contain middle day")
	}
	if h.Contains(d(2026, 1, 4)) {
		t.Errorf("expected horizon to exclude day after End")
	}
}

func TestCostBreakdownTotal(t *testing.T) {
	cb := CostBreakdown{
		Labor:      decimal.NewFromInt(10),
		Production: decimal.NewFromInt(20),
		Shortage:   decimal.NewFromInt(5),
	}
	want := decimal.NewFromInt(35)
	if !cb.Total().Equal(want) {
		t.Errorf("Total() = %s, want %s", cb.Total(), want)
	}
}

func TestDateKeyRoundTrip(t *testing.T) {
	day := d(2026, 3, 14)
	if got := dateKey(day); got != "2026-03-14" {
		t.Errorf("dateKey = %s, want 2026-03-14", got)
	}
}
