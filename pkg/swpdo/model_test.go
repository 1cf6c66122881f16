package swpdo

import "testing"

func TestBuildModelCreatesCoreVariables(t *testing.T) {
	req := NewTestSolveRequest()
	nm, err := BuildNetwork(req, nil)
	if err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}
	idx := BuildIndex(req, nm)
	p, mv, err := BuildModel(req, nm, idx, nil)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}

	if p.NumVars() == 0 {
		t.Fatal("expected at least one variable")
	}
	if p.NumConstraints() == 0 {
		t.Fatal("expected at least one constraint")
	}
	if len(mv.Production) != len(idx.ProductionKeys) {
		t.Errorf("Production var count = %d, want %d", len(mv.Production), len(idx.ProductionKeys))
	}
	if len(mv.DemandConsumed) != len(idx.DemandKeys) {
		t.Errorf("DemandConsumed var count = %d, want %d", len(mv.DemandConsumed), len(idx.DemandKeys))
	}
	for _, k := range idx.ProductProducedKeys {
		varIdx, ok := mv.ProductProduced[k]
		if !ok {
			t.Fatalf("missing ProductProduced var for %+v", k)
		}
		if p.Kind(varIdx) != Binary {
			t.Errorf("ProductProduced[%+v] should be Binary, got %v", k, p.Kind(varIdx))
		}
	}
}

func TestBuildModelShortageForcedZeroWhenDisallowed(t *testing.T) {
	req := NewTestSolveRequest()
	req.Options.AllowShortages = false
	nm, _ := BuildNetwork(req, nil)
	idx := BuildIndex(req, nm)
	p, mv, err := BuildModel(req, nm, idx, nil)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	for _, i := range mv.Shortage {
		_, hi := p.Bounds(i)
		if hi != 0 {
			t.Errorf("shortage upper bound = %v, want 0 when AllowShortages=false", hi)
		}
	}
}
