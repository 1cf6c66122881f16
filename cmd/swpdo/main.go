package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/breadworks/swpdo/pkg/swpdo"
)

func main() {
	var (
		requestFile = flag.String("request", "", "Path to a JSON-encoded SolveRequest")
		outputFile  = flag.String("output", "", "Output path for the JSON plan (default: stdout)")
		verbose     = flag.Bool("verbose", false, "Enable verbose (debug-level) logging")
		help        = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help || *requestFile == "" {
		showHelp()
		if *requestFile == "" && !*help {
			os.Exit(1)
		}
		return
	}

	logger := newCLILogger(*verbose)
	defer logger.Sync()

	req, err := loadRequest(*requestFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading request: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := swpdo.NewEngine(logger)

	start := time.Now()
	plan, err := engine.Solve(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error solving: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "solved in %v, status=%s\n", elapsed, plan.Aggregate.Status)
	}

	if err := writePlan(plan, *outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func newCLILogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadRequest(path string) (*swpdo.SolveRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open request file: %w", err)
	}
	defer f.Close()

	var req swpdo.SolveRequest
	dec := json.NewDecoder(f)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

func writePlan(plan *swpdo.Plan, outputPath string) error {
	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func showHelp() {
	fmt.Printf(`swpdo - sliding-window perishable production-distribution optimizer

USAGE:
    swpdo -request <file.json> [-output <file.json>] [-verbose]

OPTIONS:
    -request <file>   Path to a JSON-encoded SolveRequest (required)
    -output <file>    Output path for the JSON plan (default: stdout)
    -verbose          Enable debug-level logging
    -help             Show this help message

The request JSON mirrors swpdo.SolveRequest: a horizon, a node list, routes,
truck schedules, a product catalog, a labor calendar, a cost structure, a
demand forecast, and initial inventory. The output mirrors swpdo.Plan: the
aggregate solution (status, objective, cost breakdown, per-SKU flows) and
the per-batch FEFO allocation.

EXAMPLES:
    swpdo -request scenario.json -verbose
    swpdo -request scenario.json -output plan.json
`)
}
