package swpdo

import (
	"math"
	"testing"
)

func TestSolveLPMinimizeWithGEConstraint(t *testing.T) {
	// minimize x+y s.t. x+2y >= 4, 0<=x,y<=10.
	// y is the cheaper way to satisfy the constraint (coefficient 2 at cost
	// 1), so the optimum is x=0, y=2, objective=2.
	lp := &lpRelaxation{
		numVars: 2,
		lower:   []float64{0, 0},
		upper:   []float64{10, 10},
		cost:    []float64{1, 1},
		rows: []row{
			{name: "c1", coeffs: map[int]float64{0: 1, 1: 2}, sense: GE, rhs: 4},
		},
	}
	x, obj, err := solveLP(lp)
	if err != nil {
		t.Fatalf("solveLP returned error: %v", err)
	}
	if math.Abs(obj-2) > 1e-6 {
		t.Errorf("objective = %v, want 2", obj)
	}
	if math.Abs(x[1]-2) > 1e-6 {
		t.Errorf("x[1] = %v, want 2", x[1])
	}
	if math.Abs(x[0]) > 1e-6 {
		t.Errorf("x[0] = %v, want 0", x[0])
	}
}

func TestSolveLPInfeasible(t *testing.T) {
	// x+y <= 1 and x+y >= 5 cannot both hold with x,y in [0,10].
	lp := &lpRelaxation{
		numVars: 2,
		lower:   []float64{0, 0},
		upper:   []float64{10, 10},
		cost:    []float64{1, 1},
		rows: []row{
			{name: "upper", coeffs: map[int]float64{0: 1, 1: 1}, sense: LE, rhs: 1},
			{name: "lower", coeffs: map[int]float64{0: 1, 1: 1}, sense: GE, rhs: 5},
		},
	}
	_, _, err := solveLP(lp)
	if err != ErrLPInfeasible {
		t.Fatalf("expected ErrLPInfeasible, got %v", err)
	}
}

func TestSolveLPUnbounded(t *testing.T) {
	// minimize -x (i.e. maximize x): x has no finite upper bound and no
	// constraint mentions it, so the relaxation is unbounded.
	lp := &lpRelaxation{
		numVars: 2,
		lower:   []float64{0, 0},
		upper:   []float64{math.Inf(1), 1},
		cost:    []float64{-1, 0},
		rows:    nil,
	}
	_, _, err := solveLP(lp)
	if err != ErrLPUnbounded {
		t.Fatalf("expected ErrLPUnbounded, got %v", err)
	}
}

func TestSolveLPRespectsUpperBoundRow(t *testing.T) {
	// minimize -y (maximize y) with y capped at 3: optimum is y=3.
	lp := &lpRelaxation{
		numVars: 1,
		lower:   []float64{0},
		upper:   []float64{3},
		cost:    []float64{-1},
		rows:    nil,
	}
	x, obj, err := solveLP(lp)
	if err != nil {
		t.Fatalf("solveLP returned error: %v", err)
	}
	if math.Abs(x[0]-3) > 1e-6 {
		t.Errorf("x[0] = %v, want 3", x[0])
	}
	if math.Abs(obj+3) > 1e-6 {
		t.Errorf("objective = %v, want -3", obj)
	}
}
