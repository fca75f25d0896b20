package optimizer

import (
	"context"
	"fmt"

	"tradeopt/internal/engine"
	"tradeopt/internal/history"
	"tradeopt/internal/md"
	"tradeopt/internal/strategy"
)

// TickerOutcome is a grid search bound to the ticker it ran on.
type TickerOutcome struct {
	Ticker         string
	InitialCapital float64
	Trend          strategy.Trend
	Outcome
}

// Service resolves tickers through a history provider before handing the
// series to the optimizer or validator.
type Service struct {
	provider  history.Provider
	runner    *engine.Runner
	optimizer *Optimizer
	validator *Validator
}

func NewService(provider history.Provider, runner *engine.Runner, opts ...Option) (*Service, error) {
	opt, err := New(runner, opts...)
	if err != nil {
		return nil, err
	}
	return &Service{
		provider:  provider,
		runner:    runner,
		optimizer: opt,
		validator: NewValidator(provider, runner),
	}, nil
}

// RecordValidations sends the trace of every Validate run to rec. Grid
// searches stay unrecorded.
func (s *Service) RecordValidations(rec engine.Recorder) {
	s.validator = NewValidator(s.provider, engine.NewRunner(s.runner.Config(), engine.WithRecorder(rec)))
}

func (s *Service) TickerExists(ctx context.Context, ticker string) (bool, error) {
	return s.provider.TickerExists(ctx, NormalizeTicker(ticker))
}

func (s *Service) Optimize(ctx context.Context, ticker string, capital float64) (TickerOutcome, error) {
	if err := CheckCapital(capital); err != nil {
		return TickerOutcome{}, err
	}
	ticker = NormalizeTicker(ticker)
	series, err := s.load(ctx, ticker)
	if err != nil {
		return TickerOutcome{}, err
	}
	out := TickerOutcome{
		Ticker:         ticker,
		InitialCapital: capital,
		Trend:          s.trend(series),
	}
	out.Outcome, err = s.optimizer.Optimize(ctx, series, capital)
	if err != nil {
		return out, fmt.Errorf("optimize %s: %w", ticker, err)
	}
	return out, nil
}

func (s *Service) Validate(ctx context.Context, ticker string, upper, lower, capital float64) (engine.Result, error) {
	return s.validator.Validate(ctx, ticker, upper, lower, capital)
}

func (s *Service) Trend(ctx context.Context, ticker string) (strategy.Trend, error) {
	series, err := s.load(ctx, ticker)
	if err != nil {
		return "", err
	}
	return s.trend(series), nil
}

func (s *Service) load(ctx context.Context, ticker string) (md.PriceSeries, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, &InvalidParameterError{Field: "ticker", Message: "ticker is required"}
	}
	series, err := s.provider.LoadPriceHistory(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", ticker, err)
	}
	return series, nil
}

func (s *Service) trend(series md.PriceSeries) strategy.Trend {
	cfg := s.runner.Config()
	return strategy.ClassifyTrend(series, cfg.ShortWindow, cfg.LongWindow)
}
