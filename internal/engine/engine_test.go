package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"tradeopt/internal/config"
	"tradeopt/internal/md"
	"tradeopt/internal/strategy"
)

func seriesOf(closes ...float64) md.PriceSeries {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make(md.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = md.DailyClose{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func constantSeries(days int, price float64) md.PriceSeries {
	closes := make([]float64, days)
	for i := range closes {
		closes[i] = price
	}
	return seriesOf(closes...)
}

type collectingRecorder struct {
	decisions []Decision
}

func (c *collectingRecorder) Append(decision Decision) {
	c.decisions = append(c.decisions, decision)
}

func TestRunConstantPricesBuysOnceAndHolds(t *testing.T) {
	runner := NewRunner(config.DefaultEngine())
	pairs := []strategy.Thresholds{{Upper: 1.01, Lower: 0.99}, {Upper: 1.2, Lower: 0.9}, {Upper: 1.07, Lower: 0.95}}

	for _, pair := range pairs {
		result := runner.Run(constantSeries(40, 100), pair, 10_000)
		if !result.TradesExecuted {
			t.Fatalf("%s: expected trades to execute", pair)
		}
		if result.Final.Position.Qty != 100 || result.Final.Position.AvgEntry != 100 {
			t.Fatalf("%s: unexpected final position %+v", pair, result.Final.Position)
		}
		if result.Final.Capital != 0 {
			t.Fatalf("%s: expected capital 0, got %.2f", pair, result.Final.Capital)
		}
		if result.Buys != 1 || result.Sells != 0 {
			t.Fatalf("%s: expected 1 buy and no sells, got %d/%d", pair, result.Buys, result.Sells)
		}
		if result.Score != 0 {
			t.Fatalf("%s: expected zero score, got %.2f", pair, result.Score)
		}
	}
}

func TestRunShortHistoryNeverTrades(t *testing.T) {
	runner := NewRunner(config.DefaultEngine())
	for days := 0; days < 10; days++ {
		result := runner.Run(constantSeries(days, 50), strategy.Thresholds{Upper: 1.1, Lower: 0.9}, 100_000)
		if result.TradesExecuted {
			t.Fatalf("days=%d: expected no trades", days)
		}
		if !result.InsufficientHistory {
			t.Fatalf("days=%d: expected insufficient history flag", days)
		}
		if result.Final.Capital != 100_000 || result.Final.Position.Qty != 0 {
			t.Fatalf("days=%d: account changed: %+v", days, result.Final)
		}
	}
}

func TestRunTakesProfitInUptrend(t *testing.T) {
	runner := NewRunner(config.DefaultEngine())
	series := seriesOf(100, 102, 104, 106, 108, 110, 112, 114, 116, 118, 120, 122)

	result := runner.Run(series, strategy.Thresholds{Upper: 1.09, Lower: 0.9}, 10_000)
	if result.Buys != 1 || result.Sells != 1 {
		t.Fatalf("expected one buy and one sell, got %d/%d", result.Buys, result.Sells)
	}
	if result.Final.Capital != 11_000 || result.Final.Position.Qty != 0 {
		t.Fatalf("unexpected final state %+v", result.Final)
	}
	if result.Score != 1_000 {
		t.Fatalf("expected score 1000, got %.2f", result.Score)
	}
	sell := result.Trace[5]
	if sell.Intent != strategy.Sell || sell.Reason != "take_profit_uptrend" || sell.ExecutedQty != 100 {
		t.Fatalf("expected take-profit on day 5, got %+v", sell)
	}
	if result.Trace[6].Reason != "insufficient_capital" {
		t.Fatalf("expected re-entry to fail for capital, got %+v", result.Trace[6])
	}
}

func TestRunStopLossThenReenters(t *testing.T) {
	runner := NewRunner(config.DefaultEngine())
	series := seriesOf(100, 97, 95, 89, 88, 87, 86, 85, 84, 83)

	result := runner.Run(series, strategy.Thresholds{Upper: 1.2, Lower: 0.9}, 10_000)
	if result.Buys != 2 || result.Sells != 1 {
		t.Fatalf("expected two buys and one sell, got %d/%d", result.Buys, result.Sells)
	}
	if result.Trace[3].Reason != "stop_loss" {
		t.Fatalf("expected stop loss on day 3, got %+v", result.Trace[3])
	}
	if result.Final.Capital != 100 || result.Final.Position.Qty != 100 || result.Final.Position.AvgEntry != 88 {
		t.Fatalf("unexpected final state %+v", result.Final)
	}
	if result.Score != -1_600 {
		t.Fatalf("expected score -1600, got %.2f", result.Score)
	}
}

func TestRunUpperBandNeedsFinalUptrend(t *testing.T) {
	runner := NewRunner(config.DefaultEngine())
	series := seriesOf(100, 150, 150, 150, 150, 150, 120, 120, 120, 120)

	result := runner.Run(series, strategy.Thresholds{Upper: 1.1, Lower: 0.9}, 10_000)
	if result.Sells != 0 {
		t.Fatalf("expected no sells while short average is below long, got %d", result.Sells)
	}
	if result.Final.Position.Qty != 100 {
		t.Fatalf("expected position to be held, got %+v", result.Final.Position)
	}
}

func TestRunTrailingModeWaitsForFullWindow(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.Mode = config.ModeTrailing
	runner := NewRunner(cfg)
	series := seriesOf(100, 150, 150, 150, 150, 150, 120, 120, 120, 120)

	result := runner.Run(series, strategy.Thresholds{Upper: 1.1, Lower: 0.9}, 10_000)
	errors := 0
	for _, d := range result.Trace {
		if d.Result == ResultError {
			errors++
		}
	}
	if errors != 8 {
		t.Fatalf("expected 8 days without averages, got %d", errors)
	}
	if result.Trace[9].Result != ResultHold {
		t.Fatalf("expected a regular hold once averages are ready, got %+v", result.Trace[9])
	}
}

func TestRunTrailingModeUsesPerDayAverages(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.ShortWindow = 2
	cfg.LongWindow = 3
	cfg.Mode = config.ModeTrailing
	series := seriesOf(100, 100, 100, 112, 112, 90, 80, 70)

	trailing := NewRunner(cfg).Run(series, strategy.Thresholds{Upper: 1.1, Lower: 0.5}, 10_000)
	if trailing.Trace[3].Reason != "take_profit_uptrend" {
		t.Fatalf("expected trailing averages to allow take-profit on day 3, got %+v", trailing.Trace[3])
	}

	cfg.Mode = config.ModeLastValue
	lastValue := NewRunner(cfg).Run(series, strategy.Thresholds{Upper: 1.1, Lower: 0.5}, 10_000)
	if lastValue.Sells != 0 {
		t.Fatalf("expected final downtrend to block every take-profit, got %d sells", lastValue.Sells)
	}
}

func TestRunRecordsEveryDay(t *testing.T) {
	recorder := &collectingRecorder{}
	runner := NewRunner(config.DefaultEngine(), WithRecorder(recorder))
	series := constantSeries(15, 20)

	result := runner.Run(series, strategy.Thresholds{Upper: 1.1, Lower: 0.9}, 10_000)
	if len(recorder.decisions) != len(series) || len(result.Trace) != len(series) {
		t.Fatalf("expected %d decisions, got recorder=%d trace=%d", len(series), len(recorder.decisions), len(result.Trace))
	}
	first := recorder.decisions[0]
	if first.Result != ResultExecuted || first.ExecutedQty != 500 {
		t.Fatalf("unexpected first decision %+v", first)
	}
	for _, d := range recorder.decisions {
		if d.RunID != result.RunID {
			t.Fatalf("decision run id %q does not match result %q", d.RunID, result.RunID)
		}
	}
}

func TestRunWithoutCapitalForOneLotHolds(t *testing.T) {
	runner := NewRunner(config.DefaultEngine())
	result := runner.Run(constantSeries(12, 500), strategy.Thresholds{Upper: 1.1, Lower: 0.9}, 10_000)
	if result.TradesExecuted {
		t.Fatalf("expected no trades without capital for a lot")
	}
	if result.Trace[0].Result != ResultHold || result.Trace[0].Reason != "insufficient_capital" {
		t.Fatalf("unexpected decision %+v", result.Trace[0])
	}
}

func TestResultStringDescribesWholeRun(t *testing.T) {
	result := NewRunner(config.DefaultEngine()).Run(constantSeries(40, 100), strategy.Thresholds{Upper: 1.05, Lower: 0.95}, 10_000)

	got := fmt.Sprint(result)
	for _, want := range []string{"run=" + result.RunID, "upper=1.05 lower=0.95", "capital=0.00", "holding=100", "score=0.00", "trades_executed=true"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}
