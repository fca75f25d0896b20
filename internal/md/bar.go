package md

import (
	"math"
	"time"
)

// Bar is one raw price observation as stored by a history source. Rows may be
// intraday or daily and arrive in any order.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	AdjClose  float64
	Volume    float64
}

func (b Bar) valid() bool {
	if b.Timestamp.IsZero() {
		return false
	}
	if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
		return false
	}
	return b.Close > 0
}

// DailyClose is the closing price of a single calendar day.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is ordered by date, strictly increasing, one entry per day.
type PriceSeries []DailyClose

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, d := range s {
		out[i] = d.Close
	}
	return out
}

func (s PriceSeries) Last() (DailyClose, bool) {
	if len(s) == 0 {
		return DailyClose{}, false
	}
	return s[len(s)-1], true
}
