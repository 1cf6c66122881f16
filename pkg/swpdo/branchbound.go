package swpdo

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// bbNode is one subproblem in the branch-and-bound tree: the root problem
// with a narrowed pair of bound overrides per integer/binary variable.
type bbNode struct {
	lower map[int]float64
	upper map[int]float64
	depth int
}

// incumbent tracks the best integer-feasible solution found so far.
type incumbent struct {
	found     bool
	x         []float64
	objective float64
}

// solveMILP runs branch-and-bound over p's integer and binary variables,
// relaxing everything else to the two-phase simplex in simplex.go. It is the
// from-scratch MIP driver the pack has no library for (spec.md §4.8): every
// example repo that touches gonum uses it for dense linear algebra or graph
// analysis, never for integer programming, so branching logic is original
// to this package, grounded only in the general depth-first/most-fractional
// pattern rather than any one file in the pack.
//
// ctx is checked between node expansions so a caller can cancel a long solve
// (spec.md §5); a cancellation surfaces as StatusTerminatedByUser with
// whatever incumbent, if any, had already been found.
func solveMILP(ctx context.Context, p *Problem, opts SolverOptions, logger *zap.Logger) ([]float64, float64, TerminationStatus, float64, error) {
	n := p.NumVars()
	rootLower := make([]float64, n)
	rootUpper := make([]float64, n)
	cost := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, hi := p.Bounds(i)
		rootLower[i] = lo
		rootUpper[i] = hi
	}
	for idx, c := range p.obj {
		cost[idx] = c
	}
	if !p.minimize {
		for i := range cost {
			cost[i] = -cost[i]
		}
	}

	intVars := p.IntegerVars()
	isInt := make(map[int]bool, len(intVars))
	for _, v := range intVars {
		isInt[v] = true
	}

	// hintValue records the warm-start preference per variable, if any. It
	// only ever reorders which child of a branch is pushed last (explored
	// first, since the frontier is a stack) — never a bound, so a wrong hint
	// degrades search order, not correctness.
	hintValue := make(map[int]float64, len(p.hints))
	for _, h := range p.Hints() {
		hintValue[h.VarIndex] = h.Value
	}

	deadline := time.Time{}
	if opts.TimeLimitSeconds > 0 {
		deadline = time.Now().Add(time.Duration(opts.TimeLimitSeconds * float64(time.Second)))
	}

	root := bbNode{lower: map[int]float64{}, upper: map[int]float64{}, depth: 0}
	stack := []bbNode{root}

	var inc incumbent
	timedOut := false
	cancelled := false
	nodesExplored := 0
	rootObjective := math.NaN()
	rootStatus := StatusUnknown

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			timedOut = true
			break
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodesExplored++

		lp := &lpRelaxation{
			numVars: n,
			lower:   boundedCopy(rootLower, node.lower),
			upper:   boundedCopy(rootUpper, node.upper),
			cost:    cost,
			rows:    p.rows,
		}
		x, obj, err := solveLP(lp)
		if err != nil {
			// Infeasible or unbounded relaxation: this branch is pruned
			// (infeasible) or the whole problem is unbounded (unbounded),
			// which only the root node can legitimately report.
			if node.depth == 0 {
				if err == ErrLPUnbounded {
					return nil, 0, StatusUnbounded, 0, nil
				}
			}
			continue
		}
		if node.depth == 0 {
			rootObjective = obj
			rootStatus = StatusOptimal
		}

		if inc.found && obj >= inc.objective-1e-9 {
			// Bound dominated: relaxation can't beat the incumbent.
			continue
		}

		branchVar, frac := mostFractional(x, intVars, isInt)
		if branchVar == -1 {
			// Integer-feasible.
			if !inc.found || obj < inc.objective {
				if logger != nil {
					fields := []zap.Field{zap.Int("node", nodesExplored), zap.Float64("objective", obj)}
					if inc.found {
						fields = append(fields, zap.Float64("incumbent_shift", ratioNorm(inc.x, x)))
					}
					logger.Debug("branch and bound improved incumbent", fields...)
				}
				inc = incumbent{found: true, x: append([]float64(nil), x...), objective: obj}
			}
			continue
		}

		floor := math.Floor(frac)
		ceil := floor + 1

		downLower := cloneBounds(node.lower)
		downUpper := cloneBounds(node.upper)
		downUpper[branchVar] = floor
		downNode := bbNode{lower: downLower, upper: downUpper, depth: node.depth + 1}

		upLower := cloneBounds(node.lower)
		upUpper := cloneBounds(node.upper)
		upLower[branchVar] = ceil
		upNode := bbNode{lower: upLower, upper: upUpper, depth: node.depth + 1}

		// Default order explores the up-branch first. A hint below the
		// up-branch's lower bound (ceil) favors the down-branch instead, so
		// push it last.
		if hv, ok := hintValue[branchVar]; ok && hv < ceil {
			stack = append(stack, upNode, downNode)
		} else {
			stack = append(stack, downNode, upNode)
		}
	}

	if logger != nil {
		logger.Info("branch and bound finished",
			zap.Int("nodes_explored", nodesExplored),
			zap.Bool("incumbent_found", inc.found),
			zap.Bool("time_limit_reached", timedOut),
			zap.Bool("cancelled", cancelled),
		)
	}

	if !inc.found {
		if cancelled {
			return nil, 0, StatusTerminatedByUser, 0, nil
		}
		if timedOut {
			return nil, 0, StatusTimeLimit, 0, nil
		}
		return nil, 0, StatusInfeasible, 0, nil
	}

	objective := inc.objective
	if !p.minimize {
		objective = -objective
	}

	gapAchieved := 0.0
	if !math.IsNaN(rootObjective) && rootStatus == StatusOptimal {
		gapAchieved = mipGap(rootObjective, inc.objective)
	}

	status := StatusOptimal
	if cancelled {
		status = StatusTerminatedByUser
	} else if timedOut {
		status = StatusTimeLimit
	} else if opts.MIPGap > 0 && gapAchieved > opts.MIPGap {
		status = StatusFeasible
	}

	return inc.x, objective, status, gapAchieved, nil
}

// mipGap computes the relative gap between the root LP bound and the best
// integer incumbent, the same ratio spec.md §4.8 uses to decide whether a
// feasible-but-unproven solution should be reported as Optimal or Feasible.
func mipGap(bound, incumbentObj float64) float64 {
	denom := math.Abs(incumbentObj)
	if denom < 1e-9 {
		denom = 1e-9
	}
	return math.Abs(incumbentObj-bound) / denom
}

// mostFractional returns the integer/binary variable furthest from an
// integer value in x, and that value, or (-1, 0) if every integer variable
// is already integral within tolerance.
func mostFractional(x []float64, intVars []int, isInt map[int]bool) (int, float64) {
	best := -1
	bestDist := simplexTolerance
	for _, idx := range intVars {
		v := x[idx]
		frac := v - math.Floor(v)
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			bestDist = dist
			best = idx
		}
	}
	if best == -1 {
		return -1, 0
	}
	return best, x[best]
}

func boundedCopy(base []float64, overrides map[int]float64) []float64 {
	out := append([]float64(nil), base...)
	for idx, v := range overrides {
		out[idx] = v
	}
	return out
}

func cloneBounds(m map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
