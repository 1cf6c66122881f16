package swpdo

import "testing"

func TestProblemAddVarDuplicatePanics(t *testing.T) {
	p := NewProblem()
	p.AddVar("x", Continuous, 0, 1)

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on duplicate variable name")
		}
	}()
	p.AddVar("x", Continuous, 0, 1)
}

func TestProblemAddConstraintDropsZeroTerms(t *testing.T) {
	p := NewProblem()
	x := p.AddVar("x", Continuous, 0, 10)
	y := p.AddVar("y", Continuous, 0, 10)

	p.AddConstraint("c1", map[int]float64{x: 1, y: 0}, LE, 5)

	if len(p.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(p.rows))
	}
	if _, ok := p.rows[0].coeffs[y]; ok {
		t.Errorf("expected zero-coefficient term for y to be dropped")
	}
	if c, ok := p.rows[0].coeffs[x]; !ok || c != 1 {
		t.Errorf("expected x coefficient 1, got %v (ok=%v)", c, ok)
	}
}

func TestProblemIntegerVars(t *testing.T) {
	p := NewProblem()
	p.AddVar("c", Continuous, 0, 1)
	b := p.AddVar("b", Binary, 0, 1)
	i := p.AddVar("i", Integer, 0, 10)

	got := p.IntegerVars()
	if len(got) != 2 || got[0] != b || got[1] != i {
		t.Errorf("IntegerVars() = %v, want [%d %d]", got, b, i)
	}
}

func TestVarKeyDeterministic(t *testing.T) {
	a := varKey("production", "bakery", "white-loaf", "2026-01-01")
	b := varKey("production", "bakery", "white-loaf", "2026-01-01")
	if a != b {
		t.Errorf("varKey not deterministic: %q != %q", a, b)
	}
	c := varKey("production", "bakery", "white-loaf", "2026-01-02")
	if a == c {
		t.Errorf("varKey collided across different dates")
	}
}
