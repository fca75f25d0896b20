package strategy

import (
	"log/slog"
	"math"
)

// Crossover opens a full-capital position whenever flat, then exits either on
// profit in an uptrend or on a stop loss.
//
// The upper band needs the short average above the long one; the lower band
// fires on price alone. Backtest results depend on that asymmetry.
type Crossover struct {
	Thresholds Thresholds
	LotSize    int
}

func (c Crossover) Decide(snapshot MarketSnapshot) TradeIntent {
	if snapshot.PositionQty == 0 {
		qty := lots(affordable(snapshot.Capital, snapshot.Close), c.LotSize)
		if qty > 0 {
			return TradeIntent{Action: Buy, Qty: qty, Reason: "flat_entry"}
		}
		slog.Debug("not enough capital to buy", "price", snapshot.Close, "capital", snapshot.Capital)
		return TradeIntent{Action: Hold, Reason: "insufficient_capital"}
	}

	if !snapshot.MAReady {
		slog.Error("moving averages unavailable", "price", snapshot.Close, "position", snapshot.PositionQty)
		return TradeIntent{Action: Hold, Reason: "ma_unavailable", Error: true}
	}

	exitQty := lots(snapshot.PositionQty, c.LotSize)
	if snapshot.Close >= snapshot.AvgPrice*c.Thresholds.Upper && snapshot.ShortMA > snapshot.LongMA {
		return TradeIntent{Action: Sell, Qty: exitQty, Reason: "take_profit_uptrend"}
	}
	if snapshot.Close <= snapshot.AvgPrice*c.Thresholds.Lower {
		return TradeIntent{Action: Sell, Qty: exitQty, Reason: "stop_loss"}
	}
	return TradeIntent{Action: Hold, Reason: "within_band"}
}

func affordable(capital, price float64) int {
	if price <= 0 || capital <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return int(math.Floor(capital / price))
}

func lots(qty, lot int) int {
	if lot <= 0 {
		lot = 100
	}
	if qty <= 0 {
		return 0
	}
	return qty / lot * lot
}
