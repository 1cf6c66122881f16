package swpdo

import "go.uber.org/zap"

// requestSummaryFields renders the top-level shape of a SolveRequest as
// structured fields, so every stage's "starting"/"failed" log line carries
// the same at-a-glance sizing without each call site re-deriving it.
func requestSummaryFields(req *SolveRequest) []zap.Field {
	return []zap.Field{
		zap.Int("nodes", len(req.Nodes)),
		zap.Int("routes", len(req.Routes)),
		zap.Int("products", len(req.Products)),
		zap.Int("forecast_entries", len(req.Forecast)),
	}
}

// solutionSummaryFields renders a finished AggregateSolution's headline
// numbers for the completion log line.
func solutionSummaryFields(sol *AggregateSolution) []zap.Field {
	return []zap.Field{
		zap.String("status", sol.Status.String()),
		zap.Float64("mip_gap", sol.MIPGapAchieved),
		zap.Int("warnings", len(sol.Warnings)),
	}
}
