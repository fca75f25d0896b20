package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tradeopt/internal/config"
	"tradeopt/internal/md"
	"tradeopt/internal/metrics"
	"tradeopt/internal/risk"
	"tradeopt/internal/state"
	"tradeopt/internal/strategy"
)

// Recorder receives every decision a run makes, in order.
type Recorder interface {
	Append(decision Decision)
}

// Result is the outcome of replaying one threshold pair over a series.
type Result struct {
	RunID string `json:"run_id"`
	strategy.Thresholds
	InitialCapital      float64        `json:"initial_capital"`
	Final               state.Snapshot `json:"final"`
	LastPrice           float64        `json:"last_price"`
	Score               float64        `json:"score"`
	TradesExecuted      bool           `json:"trades_executed"`
	InsufficientHistory bool           `json:"insufficient_history"`
	Buys                int            `json:"buys"`
	Sells               int            `json:"sells"`
	Trace               []Decision     `json:"trace,omitempty"`
}

// String overrides the one promoted from the embedded Thresholds.
func (r Result) String() string {
	return fmt.Sprintf("run=%s %s capital=%.2f holding=%d score=%.2f trades_executed=%t insufficient_history=%t",
		r.RunID, r.Thresholds, r.Final.Capital, r.Final.Position.Qty, r.Score, r.TradesExecuted, r.InsufficientHistory)
}

// Runner replays the crossover policy over a price series. A Runner holds no
// per-run state, so one instance may serve concurrent runs.
type Runner struct {
	cfg      config.Engine
	gate     risk.Gate
	recorder Recorder
}

type Option func(*Runner)

func WithRecorder(recorder Recorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

func NewRunner(cfg config.Engine, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Config() config.Engine {
	return r.cfg
}

// Run simulates one account from capital over series. Series shorter than the
// long window produce a result flagged InsufficientHistory with no trades.
func (r *Runner) Run(series md.PriceSeries, thresholds strategy.Thresholds, capital float64) Result {
	metrics.SimulationsTotal.WithLabelValues(string(r.mode())).Inc()

	account := state.NewAccount(capital, r.cfg.LotSize)
	result := Result{
		RunID:          uuid.NewString(),
		Thresholds:     thresholds,
		InitialCapital: capital,
	}
	if last, ok := series.Last(); ok {
		result.LastPrice = last.Close
	}

	if len(series) < r.cfg.LongWindow {
		slog.Debug("not enough historical data to calculate moving averages",
			"days", len(series), "long_window", r.cfg.LongWindow)
		result.InsufficientHistory = true
		result.Final = account.Snapshot()
		return result
	}

	var policy strategy.Strategy = strategy.Crossover{Thresholds: thresholds, LotSize: r.cfg.LotSize}
	averages := r.averages(series)
	result.Trace = make([]Decision, 0, len(series))

	for i, day := range series {
		avg := averages[i]
		pos := account.Position()
		intent := policy.Decide(strategy.MarketSnapshot{
			Timestamp:   day.Date,
			Close:       day.Close,
			ShortMA:     avg.short,
			LongMA:      avg.long,
			MAReady:     avg.ready,
			Capital:     account.Capital(),
			PositionQty: pos.Qty,
			AvgPrice:    pos.AvgEntry,
		})

		decision := Decision{
			RunID:     result.RunID,
			Day:       day.Date,
			Close:     day.Close,
			ShortMA:   avg.short,
			LongMA:    avg.long,
			Intent:    intent.Action,
			IntentQty: intent.Qty,
			Reason:    intent.Reason,
		}
		r.apply(account, intent, day.Close, &decision, &result)
		snap := account.Snapshot()
		decision.Capital = snap.Capital
		decision.Holding = snap.Position.Qty
		decision.AvgPrice = snap.Position.AvgEntry

		result.Trace = append(result.Trace, decision)
		if r.recorder != nil {
			r.recorder.Append(decision)
		}
	}

	result.Final = account.Snapshot()
	result.Score = account.Equity(result.LastPrice) - capital
	slog.Debug("simulation complete", "run_id", result.RunID, "thresholds", thresholds.String(),
		"capital", result.Final.Capital, "holding", result.Final.Position.Qty,
		"score", result.Score, "trades_executed", result.TradesExecuted)
	return result
}

func (r *Runner) apply(account *state.Account, intent strategy.TradeIntent, price float64, decision *Decision, result *Result) {
	if intent.Action == strategy.Hold {
		decision.Result = ResultHold
		if intent.Error {
			decision.Result = ResultError
		}
		return
	}

	approved, err := r.gate.Evaluate(intent, risk.RiskContext{
		Price:       price,
		Capital:     account.Capital(),
		PositionQty: account.Position().Qty,
		LotSize:     r.cfg.LotSize,
	})
	if err != nil {
		decision.Result = ResultNoop
		decision.RejectReason = err.Error()
		return
	}

	var executed int
	switch approved.Intent.Action {
	case strategy.Buy:
		executed = account.Buy(price, approved.Intent.Qty)
		if executed > 0 {
			result.Buys++
		}
	case strategy.Sell:
		executed = account.Sell(price, approved.Intent.Qty)
		if executed > 0 {
			result.Sells++
		}
	}
	decision.ExecutedQty = executed
	if executed == 0 {
		decision.Result = ResultNoop
		return
	}
	decision.Result = ResultExecuted
	result.TradesExecuted = true
}

func (r *Runner) mode() config.Mode {
	if r.cfg.Mode == "" {
		return config.ModeLastValue
	}
	return r.cfg.Mode
}

type dayAverages struct {
	short float64
	long  float64
	ready bool
}

func (r *Runner) averages(series md.PriceSeries) []dayAverages {
	out := make([]dayAverages, len(series))
	if r.mode() == config.ModeTrailing {
		buffer := md.NewRingBuffer(max(r.cfg.ShortWindow, r.cfg.LongWindow))
		for i, day := range series {
			buffer.Add(day.Close)
			short, errShort := buffer.SMA(r.cfg.ShortWindow)
			long, errLong := buffer.SMA(r.cfg.LongWindow)
			out[i] = dayAverages{short: short, long: long, ready: errShort == nil && errLong == nil}
		}
		return out
	}

	// Both averages come from the full series and are reused on every day.
	closes := series.Closes()
	short, okShort := md.LastMovingAverage(closes, r.cfg.ShortWindow)
	long, okLong := md.LastMovingAverage(closes, r.cfg.LongWindow)
	for i := range out {
		out[i] = dayAverages{short: short, long: long, ready: okShort && okLong}
	}
	return out
}
