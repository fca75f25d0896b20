package strategy

import (
	"fmt"
	"time"
)

type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// MarketSnapshot is what a strategy sees on one simulated day.
type MarketSnapshot struct {
	Timestamp   time.Time
	Close       float64
	ShortMA     float64
	LongMA      float64
	MAReady     bool
	Capital     float64
	PositionQty int
	AvgPrice    float64
}

type TradeIntent struct {
	Action Action
	Qty    int
	Reason string
	// Error marks a hold caused by missing inputs rather than a market call.
	Error bool
}

type Strategy interface {
	Decide(snapshot MarketSnapshot) TradeIntent
}

// Thresholds are multiplicative bands around the average cost basis.
type Thresholds struct {
	Upper float64 `json:"upper_limit"`
	Lower float64 `json:"lower_limit"`
}

func (t Thresholds) String() string {
	return fmt.Sprintf("upper=%.2f lower=%.2f", t.Upper, t.Lower)
}
