package swpdo

import "testing"

func TestBuildIndexProducesExpectedFamilies(t *testing.T) {
	req := NewTestSolveRequest()
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}
	idx := BuildIndex(req, nm)

	days := len(req.Horizon.Days())
	if len(idx.ProductionKeys) != days {
		t.Errorf("ProductionKeys = %d, want %d (one produce node x one product x %d days)", len(idx.ProductionKeys), days, days)
	}
	if len(idx.DemandKeys) != len(req.Forecast) {
		t.Errorf("DemandKeys = %d, want %d", len(idx.DemandKeys), len(req.Forecast))
	}
	if len(idx.TransitKeys) == 0 {
		t.Errorf("expected at least one transit key for the bakery->store route")
	}
	for _, k := range idx.TransitKeys {
		if k.Arrival(1).After(req.Horizon.End) {
			t.Errorf("transit key %+v delivers beyond the horizon", k)
		}
	}
}

func TestBuildIndexSkipsBeyondHorizonDelivery(t *testing.T) {
	req := NewTestSolveRequest()
	// A 10-day transit leg inside a 5-day horizon can never arrive in
	// time: every departure date implies an arrival well past
	// horizon_end, so no transit key should survive at all. Admitting one
	// would depart the origin (leaving its mass balance) with no InvKey
	// at the destination to receive it, a silent mass-closure leak.
	req.Routes[0].TransitDays = 10
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}
	idx := BuildIndex(req, nm)

	if len(idx.TransitKeys) != 0 {
		t.Errorf("expected no transit keys when transit exceeds the horizon, got %d", len(idx.TransitKeys))
	}
}
