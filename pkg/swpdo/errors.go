package swpdo

import "fmt"

// ConfigError is a fatal pre-build configuration error (spec.md §7): an
// unknown product id, a missing labor day, an under-scaled shortage penalty,
// or a route targeting a non-existent node. Never guessed or auto-filled.
type ConfigError struct {
	Rule    string
	Witness string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Rule, e.Witness)
}

// InfeasibilityError wraps a backend-reported infeasible termination when
// shortages were allowed, which spec.md §7 treats as a model bug rather than
// a normal outcome.
type InfeasibilityError struct {
	LPExportPath string
}

func (e *InfeasibilityError) Error() string {
	msg := "solve reported infeasible with shortages allowed"
	if e.LPExportPath != "" {
		msg += fmt.Sprintf(" (LP export: %s)", e.LPExportPath)
	}
	return msg
}

// Witness identifies the smallest counter-example for an invariant violation
// (spec.md §6 validation contract).
type Witness struct {
	Node    NodeID
	Product ProductID
	State   StorageState
	Date    string
	Detail  string
}

func (w Witness) String() string {
	return fmt.Sprintf("node=%s product=%s state=%s date=%s: %s",
		w.Node, w.Product, w.State, w.Date, w.Detail)
}

// InvariantViolationError is raised by C7 when a post-solve or post-FEFO
// check fails. Never silently tolerated (spec.md §7).
type InvariantViolationError struct {
	Rule    string
	Witness Witness
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation [%s]: %s", e.Rule, e.Witness)
}
