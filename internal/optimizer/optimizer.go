package optimizer

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeopt/internal/engine"
	"tradeopt/internal/md"
	"tradeopt/internal/metrics"
)

// Outcome is the winning cell of a grid search.
type Outcome struct {
	Best           engine.Result   `json:"best"`
	CellsEvaluated int             `json:"cells_evaluated"`
	ViableCells    int             `json:"viable_cells"`
	Results        []engine.Result `json:"results,omitempty"`
}

type Optimizer struct {
	runner     *engine.Runner
	grid       Grid
	workers    int
	includeAll bool
}

type Option func(*Optimizer)

// WithWorkers bounds concurrent simulations; n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *Optimizer) { o.workers = n }
}

// WithAllResults keeps every cell's result, without traces, in the outcome.
func WithAllResults() Option {
	return func(o *Optimizer) { o.includeAll = true }
}

func New(runner *engine.Runner, opts ...Option) (*Optimizer, error) {
	grid, err := NewGrid(runner.Config())
	if err != nil {
		return nil, err
	}
	o := &Optimizer{runner: runner, grid: grid, workers: runner.Config().Workers}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o, nil
}

func (o *Optimizer) Grid() Grid {
	return o.grid
}

// Optimize runs every grid cell against series with a fresh account and
// returns the highest scoring cell that traded. Equal scores keep the cell
// that comes first in enumeration order, however the cells were scheduled.
func (o *Optimizer) Optimize(ctx context.Context, series md.PriceSeries, capital float64) (Outcome, error) {
	start := time.Now()
	defer func() { metrics.OptimizationDuration.Observe(time.Since(start).Seconds()) }()

	pairs := o.grid.Pairs()
	results := make([]engine.Result, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.runner.Run(series, pair, capital)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.OptimizationsTotal.WithLabelValues("cancelled").Inc()
		return Outcome{}, err
	}

	outcome := Outcome{CellsEvaluated: len(results)}
	best := -1
	for i := range results {
		if !results[i].TradesExecuted {
			continue
		}
		outcome.ViableCells++
		if best < 0 || results[i].Score > results[best].Score {
			best = i
		}
	}
	if best < 0 {
		metrics.OptimizationsTotal.WithLabelValues("no_viable_trade").Inc()
		slog.Warn("no grid cell executed a trade", "cells", len(results), "days", len(series))
		return outcome, ErrNoViableTrade
	}

	outcome.Best = results[best]
	if o.includeAll {
		outcome.Results = make([]engine.Result, len(results))
		for i, r := range results {
			r.Trace = nil
			outcome.Results[i] = r
		}
	}
	metrics.OptimizationsTotal.WithLabelValues("best_found").Inc()
	slog.Info("optimization complete", "cells", outcome.CellsEvaluated, "viable", outcome.ViableCells,
		"upper_limit", outcome.Best.Upper, "lower_limit", outcome.Best.Lower, "score", outcome.Best.Score,
		"elapsed", time.Since(start))
	return outcome, nil
}
