package state

import (
	"log/slog"
	"math"
)

const DefaultLotSize = 100

type Position struct {
	Qty      int     `json:"holding_quantity"`
	AvgEntry float64 `json:"average_price"`
}

// Snapshot is an immutable view of an account.
type Snapshot struct {
	Capital  float64 `json:"capital"`
	Position Position
}

// Account tracks cash, holding and average cost for one simulation run. It is
// owned by a single goroutine; every run allocates its own.
type Account struct {
	capital  float64
	position Position
	lotSize  int
}

func NewAccount(capital float64, lotSize int) *Account {
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}
	if capital < 0 || math.IsNaN(capital) {
		capital = 0
	}
	return &Account{capital: capital, lotSize: lotSize}
}

func (a *Account) Snapshot() Snapshot {
	return Snapshot{Capital: a.capital, Position: a.position}
}

func (a *Account) Capital() float64   { return a.capital }
func (a *Account) Position() Position { return a.position }
func (a *Account) LotSize() int       { return a.lotSize }

// Equity values the holding at price.
func (a *Account) Equity(price float64) float64 {
	return a.capital + float64(a.position.Qty)*price
}

// Buy purchases up to qty at price, limited to what capital affords and
// rounded down to whole lots. It returns the executed quantity; zero means
// nothing changed.
func (a *Account) Buy(price float64, qty int) int {
	if !usablePrice(price) || qty <= 0 {
		return 0
	}
	affordable := int(math.Floor(a.capital / price))
	qty = FloorLots(min(qty, affordable), a.lotSize)
	if qty <= 0 {
		slog.Debug("buy skipped", "reason", "insufficient_capital", "price", price, "capital", a.capital)
		return 0
	}

	held := a.position.Qty
	a.capital -= float64(qty) * price
	if a.capital < 0 {
		a.capital = 0
	}
	a.position.AvgEntry = (a.position.AvgEntry*float64(held) + price*float64(qty)) / float64(held+qty)
	a.position.Qty = held + qty
	slog.Debug("bought", "qty", qty, "price", price, "capital", a.capital, "holding", a.position.Qty, "avg_price", a.position.AvgEntry)
	return qty
}

// Sell disposes of up to qty at price, limited to the holding and rounded
// down to whole lots. Closing the position clears the cost basis.
func (a *Account) Sell(price float64, qty int) int {
	if !usablePrice(price) || qty <= 0 {
		return 0
	}
	qty = FloorLots(min(qty, a.position.Qty), a.lotSize)
	if qty <= 0 {
		slog.Debug("sell skipped", "reason", "no_sellable_lot", "price", price, "holding", a.position.Qty)
		return 0
	}

	a.capital += float64(qty) * price
	a.position.Qty -= qty
	if a.position.Qty == 0 {
		a.position.AvgEntry = 0
	}
	slog.Debug("sold", "qty", qty, "price", price, "capital", a.capital, "holding", a.position.Qty, "avg_price", a.position.AvgEntry)
	return qty
}

// FloorLots rounds qty down to a multiple of lot.
func FloorLots(qty, lot int) int {
	if qty <= 0 || lot <= 0 {
		return 0
	}
	return qty / lot * lot
}

func usablePrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}
