// Package feed pulls daily bars from external sources and seeds the history
// store with them.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"tradeopt/internal/md"
)

// tickerPattern also keeps tickers safe to interpolate into Flux queries.
var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

type Source interface {
	// DailyBars returns bars for ticker between start and end inclusive. A
	// zero start or end leaves that side open.
	DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]md.Bar, error)
}

type Sink interface {
	SaveBars(ctx context.Context, ticker string, bars []md.Bar) (int, error)
}

// SanitizeTicker upper-cases ticker and rejects anything that is not a plain
// exchange symbol such as BRK.A or BF-B.
func SanitizeTicker(ticker string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))
	if normalized == "" {
		return "", fmt.Errorf("ticker cannot be empty")
	}
	if !tickerPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid ticker format: %q", ticker)
	}
	return normalized, nil
}

// Import copies bars for ticker from src into sink and returns the number of
// rows written.
func Import(ctx context.Context, src Source, sink Sink, ticker string, start, end time.Time) (int, error) {
	symbol, err := SanitizeTicker(ticker)
	if err != nil {
		return 0, err
	}
	bars, err := src.DailyBars(ctx, symbol, start, end)
	if err != nil {
		return 0, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}
	for i := range bars {
		bars[i].Symbol = symbol
	}
	written, err := sink.SaveBars(ctx, symbol, bars)
	if err != nil {
		return written, fmt.Errorf("save bars for %s: %w", symbol, err)
	}
	slog.Info("bars imported", "ticker", symbol, "fetched", len(bars), "written", written)
	return written, nil
}

func inRange(ts, start, end time.Time) bool {
	if !start.IsZero() && ts.Before(start) {
		return false
	}
	if !end.IsZero() && ts.After(end) {
		return false
	}
	return true
}

func waitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
