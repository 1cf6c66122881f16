package swpdo

import "fmt"

// VarKind distinguishes continuous decision variables from the integer and
// binary ones the spec requires for mix counts, pallet ceilings, truck
// loads, and changeover/production indicators (spec.md §3).
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// Sense is the relational operator of a linear constraint row.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

// variable is one column of the MILP.
type variable struct {
	name  string
	kind  VarKind
	lower float64
	upper float64
}

// row is one linear constraint.
type row struct {
	name   string
	coeffs map[int]float64
	sense  Sense
	rhs    float64
}

// Problem is the sparse MILP substrate the Model Builder (C4) populates and
// the Solver Adapter (C5) consumes. It is backend-agnostic: nothing here
// assumes a particular LP/MIP library, the way the teacher's BOMRepository
// is storage-agnostic behind a narrow interface.
type Problem struct {
	vars     []variable
	byName   map[string]int
	rows     []row
	obj      map[int]float64
	minimize bool
	hints    []Hint
}

// Hint is a suggested value for a binary or integer variable. It carries no
// authority over feasibility: the branch-and-bound driver only consults a
// hint to decide which child of a branch to explore first, never to narrow
// a bound, so a wrong hint can cost search time but can never turn a
// feasible model infeasible.
type Hint struct {
	VarIndex int
	Value    float64
}

// AddHint records a warm-start hint for a variable (spec.md's open question
// on warm-start heuristics, resolved by SPEC_FULL.md as campaign
// clustering). Adding a hint for a variable more than once keeps the most
// recent value; duplicate clusters touching the same column is expected,
// not a bug.
func (p *Problem) AddHint(idx int, value float64) {
	p.hints = append(p.hints, Hint{VarIndex: idx, Value: value})
}

// Hints returns every hint added so far, in insertion order.
func (p *Problem) Hints() []Hint {
	return p.hints
}

// NewProblem returns an empty minimization MILP.
func NewProblem() *Problem {
	return &Problem{
		byName: make(map[string]int),
		obj:    make(map[int]float64),
		minimize: true,
	}
}

// AddVar registers a new column. name must be unique within the problem;
// reusing a name is a programmer error (the Model Builder derives names
// deterministically from index tuples, so collisions indicate a bug in the
// index enumeration, not bad input data).
func (p *Problem) AddVar(name string, kind VarKind, lower, upper float64) int {
	if _, exists := p.byName[name]; exists {
		panic(fmt.Sprintf("swpdo: duplicate variable name %q", name))
	}
	idx := len(p.vars)
	p.vars = append(p.vars, variable{name: name, kind: kind, lower: lower, upper: upper})
	p.byName[name] = idx
	return idx
}

// VarIndex looks up a previously added variable by name.
func (p *Problem) VarIndex(name string) (int, bool) {
	idx, ok := p.byName[name]
	return idx, ok
}

// NumVars returns the column count.
func (p *Problem) NumVars() int { return len(p.vars) }

// NumConstraints returns the row count.
func (p *Problem) NumConstraints() int { return len(p.rows) }

// AddObjTerm accumulates coeff*x[idx] into the objective.
func (p *Problem) AddObjTerm(idx int, coeff float64) {
	p.obj[idx] += coeff
}

// AddConstraint adds one linear row: sum(terms[i]*x[i]) <sense> rhs.
func (p *Problem) AddConstraint(name string, terms map[int]float64, sense Sense, rhs float64) {
	cp := make(map[int]float64, len(terms))
	for k, v := range terms {
		if v != 0 {
			cp[k] = v
		}
	}
	p.rows = append(p.rows, row{name: name, coeffs: cp, sense: sense, rhs: rhs})
}

// Bounds returns a variable's [lower, upper] bound.
func (p *Problem) Bounds(idx int) (float64, float64) {
	v := p.vars[idx]
	return v.lower, v.upper
}

// Kind returns a variable's domain.
func (p *Problem) Kind(idx int) VarKind {
	return p.vars[idx].kind
}

// Name returns a variable's name.
func (p *Problem) Name(idx int) string {
	return p.vars[idx].name
}

// IntegerVars returns the indices of every non-continuous variable, in the
// order they were added, for the branch-and-bound driver.
func (p *Problem) IntegerVars() []int {
	var out []int
	for i, v := range p.vars {
		if v.kind != Continuous {
			out = append(out, i)
		}
	}
	return out
}

// varKey builds the deterministic "|"-separated name the Model Builder uses for
// every family of decision variable, so the same (family, tuple) always
// resolves to the same column.
func varKey(family string, parts ...string) string {
	s := family
	for _, p := range parts {
		s += "|" + p
	}
	return s
}
