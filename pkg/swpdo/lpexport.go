package swpdo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// dumpInfeasibleLP writes p out in a plain-text LP format (the objective on
// one line, then one line per constraint row, CPLEX-LP-flavored since no pack
// dependency reads or writes this format) into a freshly made scoped temp
// directory, for a human to load into an external solver and find the
// conflicting rows by hand.
//
// The directory's lifetime is tied to ctx rather than to this call's return:
// it registers a context.AfterFunc cleanup so the export survives long
// enough for the caller (holding the returned path via
// InfeasibilityError.LPExportPath) to read it, but is still guaranteed
// removed once ctx ends — including on cancellation mid-solve — rather than
// leaking a temp directory per infeasible solve.
func dumpInfeasibleLP(ctx context.Context, p *Problem) (string, error) {
	dir, err := os.MkdirTemp("", "swpdo-infeasible-*")
	if err != nil {
		return "", fmt.Errorf("swpdo: creating LP export directory: %w", err)
	}
	context.AfterFunc(ctx, func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "model.lp")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("swpdo: creating LP export file: %w", err)
	}
	defer f.Close()

	if err := writeLP(f, p); err != nil {
		return "", fmt.Errorf("swpdo: writing LP export: %w", err)
	}
	return path, nil
}

func writeLP(w *os.File, p *Problem) error {
	var b strings.Builder

	sense := "Minimize"
	if !p.minimize {
		sense = "Maximize"
	}
	fmt.Fprintf(&b, "\\ swpdo infeasible-model export: %d variables, %d constraints\n", p.NumVars(), p.NumConstraints())
	b.WriteString(sense + "\n obj: ")
	writeTerms(&b, p.obj, p)
	b.WriteString("\n")

	b.WriteString("Subject To\n")
	for _, r := range p.rows {
		b.WriteString(" " + r.name + ": ")
		writeTerms(&b, r.coeffs, p)
		switch r.sense {
		case LE:
			b.WriteString(" <= ")
		case GE:
			b.WriteString(" >= ")
		case EQ:
			b.WriteString(" = ")
		}
		fmt.Fprintf(&b, "%g\n", r.rhs)
	}

	b.WriteString("Bounds\n")
	for i, v := range p.vars {
		fmt.Fprintf(&b, " %g <= %s <= %g\n", v.lower, v.name, v.upper)
		_ = i
	}

	b.WriteString("Generals\n")
	for _, idx := range p.IntegerVars() {
		fmt.Fprintf(&b, " %s\n", p.vars[idx].name)
	}
	b.WriteString("End\n")

	_, err := w.WriteString(b.String())
	return err
}

// writeTerms renders a sparse coefficient map in a stable column order so
// repeated exports of the same model diff cleanly.
func writeTerms(b *strings.Builder, terms map[int]float64, p *Problem) {
	idxs := make([]int, 0, len(terms))
	for idx := range terms {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for i, idx := range idxs {
		coeff := terms[idx]
		if i > 0 && coeff >= 0 {
			b.WriteString(" + ")
		} else if i > 0 {
			b.WriteString(" - ")
			coeff = -coeff
		} else if coeff < 0 {
			b.WriteString("-")
			coeff = -coeff
		}
		fmt.Fprintf(b, "%g %s", coeff, p.vars[idx].name)
	}
}
