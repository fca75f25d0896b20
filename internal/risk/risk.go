package risk

import (
	"errors"
	"log/slog"
	"math"

	"tradeopt/internal/state"
	"tradeopt/internal/strategy"
)

var (
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInsufficientFunds = errors.New("insufficient_capital")
	ErrNoPosition        = errors.New("no_position_to_sell")
)

type RiskContext struct {
	Price       float64
	Capital     float64
	PositionQty int
	LotSize     int
}

type ApprovedIntent struct {
	Intent strategy.TradeIntent
	Reason string
}

// Gate trims an intent to what the account can execute in whole lots and
// rejects intents that would execute nothing.
type Gate struct{}

func (g Gate) Evaluate(intent strategy.TradeIntent, ctx RiskContext) (ApprovedIntent, error) {
	if intent.Action == strategy.Hold {
		return ApprovedIntent{Intent: intent, Reason: "hold"}, nil
	}
	if ctx.Price <= 0 || math.IsNaN(ctx.Price) || math.IsInf(ctx.Price, 0) {
		slog.Debug("risk rejected", "reason", ErrInvalidPrice, "price", ctx.Price)
		return ApprovedIntent{}, ErrInvalidPrice
	}
	if intent.Qty <= 0 {
		slog.Debug("risk rejected", "reason", ErrInvalidQuantity, "qty", intent.Qty)
		return ApprovedIntent{}, ErrInvalidQuantity
	}

	qty := intent.Qty
	switch intent.Action {
	case strategy.Buy:
		qty = state.FloorLots(min(qty, int(math.Floor(ctx.Capital/ctx.Price))), ctx.LotSize)
		if qty <= 0 {
			slog.Debug("risk rejected", "reason", ErrInsufficientFunds, "price", ctx.Price, "capital", ctx.Capital)
			return ApprovedIntent{}, ErrInsufficientFunds
		}
	case strategy.Sell:
		qty = state.FloorLots(min(qty, ctx.PositionQty), ctx.LotSize)
		if qty <= 0 {
			slog.Debug("risk rejected", "reason", ErrNoPosition, "position", ctx.PositionQty)
			return ApprovedIntent{}, ErrNoPosition
		}
	}

	reason := "approved"
	if qty != intent.Qty {
		reason = "clamped_to_lots"
	}
	intent.Qty = qty
	return ApprovedIntent{Intent: intent, Reason: reason}, nil
}
