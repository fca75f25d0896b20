package strategy

import "tradeopt/internal/md"

type Trend string

const (
	TrendInsufficientData Trend = "insufficient_data"
	TrendSurge            Trend = "surge"
	TrendUp               Trend = "uptrend"
	TrendDown             Trend = "downtrend"
)

// surgeFactor marks a last close this far above the short average as a spike.
const surgeFactor = 1.2

// ClassifyTrend labels the latest state of the series from its short and long
// moving averages.
func ClassifyTrend(series md.PriceSeries, shortWindow, longWindow int) Trend {
	closes := series.Closes()
	shortMA, okShort := md.LastMovingAverage(closes, shortWindow)
	longMA, okLong := md.LastMovingAverage(closes, longWindow)
	if !okShort || !okLong {
		return TrendInsufficientData
	}
	last := closes[len(closes)-1]
	switch {
	case last > shortMA*surgeFactor:
		return TrendSurge
	case shortMA > longMA:
		return TrendUp
	default:
		return TrendDown
	}
}
