package swpdo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Engine runs the full SWPDO pipeline: pre-build validation, network
// pre-processing, index construction, model building, solving, and the
// weighted-age FEFO post-processor, with the C7 invariant gate checked at
// each boundary (spec.md §6). It mirrors the teacher's top-level Engine:
// one entry point, constructor-injected logger, every stage logged.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns an Engine. A nil logger is replaced with zap.NewNop so
// callers never have to guard every log call.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Plan is the final, validated result of a full Solve call: the aggregate
// solver output and its batch-level FEFO allocation.
type Plan struct {
	Aggregate *AggregateSolution
	Batches   *BatchAllocation
}

// Solve runs the pipeline end to end (spec.md §2, §6). It returns a
// ConfigError if req fails pre-build validation, an InfeasibilityError if
// the backend reports infeasible with shortages allowed, and an
// InvariantViolationError if any post-solve or post-FEFO gate fails.
func (e *Engine) Solve(ctx context.Context, req *SolveRequest) (*Plan, error) {
	e.logger.Info("solve starting", requestSummaryFields(req)...)

	if err := ValidatePreBuild(req); err != nil {
		e.logger.Error("pre-build validation failed", zap.Error(err))
		return nil, err
	}

	nm, err := BuildNetwork(req, e.logger)
	if err != nil {
		return nil, err
	}

	leadTimeWarnings := e.checkLeadTimes(req, nm)

	sol, err := Solve(ctx, req, e.logger)
	if err != nil {
		e.logger.Error("solve failed", zap.Error(err))
		return nil, err
	}
	sol.Warnings = append(sol.Warnings, leadTimeWarnings...)

	if err := ValidatePostSolve(req, nm, sol); err != nil {
		e.logger.Error("post-solve validation failed", zap.Error(err))
		return nil, err
	}

	if sol.Status != StatusOptimal && sol.Status != StatusFeasible {
		e.logger.Warn("solve did not reach a usable solution; skipping FEFO post-processing",
			zap.String("status", sol.Status.String()))
		return &Plan{Aggregate: sol, Batches: &BatchAllocation{}}, nil
	}

	alloc, err := AllocateFEFO(req, nm, sol, e.logger)
	if err != nil {
		e.logger.Error("fefo allocation failed", zap.Error(err))
		return nil, err
	}

	if err := ValidatePostFEFO(sol, alloc); err != nil {
		e.logger.Error("post-fefo validation failed", zap.Error(err))
		return nil, err
	}

	e.logger.Info("solve complete", append(solutionSummaryFields(sol), zap.Int("batches", len(alloc.Entries)))...)

	return &Plan{Aggregate: sol, Batches: alloc}, nil
}

// checkLeadTimes runs the replenishment lead-time analyzer over every
// distinct (destination, product) pair in the forecast, before the MILP is
// ever built. It never blocks the solve (a short lead time just means the
// solver will have to lean on whatever initial inventory and shortages it
// has available) but a tight horizon is worth flagging early.
func (e *Engine) checkLeadTimes(req *SolveRequest, nm *NetworkModel) []string {
	type pair struct {
		dest NodeID
		prod ProductID
	}
	checked := make(map[pair]bool)
	var warnings []string

	for _, f := range req.Forecast {
		key := pair{f.Destination, f.Product}
		if checked[key] {
			continue
		}
		checked[key] = true

		analysis := NewLeadTimeAnalyzer(req, nm).AnalyzeDestination(f.Destination, f.Product, 3)
		if analysis.ShortestPath == nil {
			w := analysis.Summary()
			warnings = append(warnings, w)
			e.logger.Warn("lead-time analyzer found no replenishment path", zap.String("destination", string(f.Destination)), zap.String("product", string(f.Product)))
			continue
		}
		if analysis.ExceedsHorizon(req.Horizon.Start, f.DeliveryDate) {
			w := fmt.Sprintf("forecast %s/%s due %s needs %d days but horizon starts %s",
				f.Destination, f.Product, f.DeliveryDate.Format("2006-01-02"),
				analysis.ShortestPath.EffectiveDays, req.Horizon.Start.Format("2006-01-02"))
			warnings = append(warnings, w)
			e.logger.Warn("forecast delivery date may be unreachable", zap.String("detail", w))
		}
	}

	return warnings
}
