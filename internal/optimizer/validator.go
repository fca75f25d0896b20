package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tradeopt/internal/engine"
	"tradeopt/internal/history"
	"tradeopt/internal/strategy"
)

// Validator replays a single caller-chosen threshold pair.
type Validator struct {
	provider history.Provider
	runner   *engine.Runner
}

func NewValidator(provider history.Provider, runner *engine.Runner) *Validator {
	return &Validator{provider: provider, runner: runner}
}

func CheckThresholds(upper, lower float64) error {
	if !(upper > 1) {
		return &InvalidParameterError{
			Field:   "upper_limit",
			Message: fmt.Sprintf("upper_limit must be greater than 1.0, got %v", upper),
		}
	}
	if !(lower < 1) {
		return &InvalidParameterError{
			Field:   "lower_limit",
			Message: fmt.Sprintf("lower_limit must be less than 1.0, got %v", lower),
		}
	}
	return nil
}

func CheckCapital(capital float64) error {
	if !(capital > 0) {
		return &InvalidParameterError{
			Field:   "initial_capital",
			Message: fmt.Sprintf("initial_capital must be greater than 0, got %v", capital),
		}
	}
	return nil
}

// NormalizeTicker is the form tickers are stored under: trimmed and upper
// case.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Validate checks the thresholds, loads history for ticker, checks capital and
// returns the run for the given thresholds as is.
func (v *Validator) Validate(ctx context.Context, ticker string, upper, lower, capital float64) (engine.Result, error) {
	if err := CheckThresholds(upper, lower); err != nil {
		return engine.Result{}, err
	}
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return engine.Result{}, &InvalidParameterError{Field: "ticker", Message: "ticker is required"}
	}

	series, err := v.provider.LoadPriceHistory(ctx, ticker)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return engine.Result{}, &InvalidParameterError{
				Field:   "ticker",
				Message: fmt.Sprintf("no price history for ticker %s", ticker),
				Err:     err,
			}
		}
		return engine.Result{}, err
	}
	if err := CheckCapital(capital); err != nil {
		return engine.Result{}, err
	}

	thresholds := strategy.Thresholds{Upper: upper, Lower: lower}
	result := v.runner.Run(series, thresholds, capital)
	slog.Info("validated parameters", "ticker", ticker, "thresholds", thresholds.String(),
		"score", result.Score, "trades_executed", result.TradesExecuted,
		"insufficient_history", result.InsufficientHistory)
	return result, nil
}
