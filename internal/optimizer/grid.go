package optimizer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeopt/internal/config"
	"tradeopt/internal/strategy"
)

// Grid is the threshold search space. Pairs enumerates upper limits ascending
// with lower limits ascending inside each; the tie-break depends on it.
type Grid struct {
	Upper []float64
	Lower []float64
}

func NewGrid(cfg config.Engine) (Grid, error) {
	if cfg.Step <= 0 {
		return Grid{}, fmt.Errorf("grid step must be > 0, got %v", cfg.Step)
	}
	grid := Grid{
		Upper: Steps(cfg.UpperLimit, cfg.Step),
		Lower: Steps(cfg.LowerLimit, cfg.Step),
	}
	if len(grid.Upper) == 0 || len(grid.Lower) == 0 {
		return Grid{}, fmt.Errorf("empty grid: upper %+v lower %+v step %v", cfg.UpperLimit, cfg.LowerLimit, cfg.Step)
	}
	return grid, nil
}

// Steps lists min, min+step, ... up to and including max, each rounded to two
// decimals. Stepping is done in decimal so float drift cannot add or drop the
// last value.
func Steps(r config.Range, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	lo := decimal.NewFromFloat(r.Min)
	hi := decimal.NewFromFloat(r.Max)
	inc := decimal.NewFromFloat(step)

	var out []float64
	for v := lo; v.LessThanOrEqual(hi); v = v.Add(inc) {
		f, _ := v.Round(2).Float64()
		if n := len(out); n > 0 && out[n-1] == f {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (g Grid) Size() int {
	return len(g.Upper) * len(g.Lower)
}

func (g Grid) Pairs() []strategy.Thresholds {
	pairs := make([]strategy.Thresholds, 0, g.Size())
	for _, upper := range g.Upper {
		for _, lower := range g.Lower {
			pairs = append(pairs, strategy.Thresholds{Upper: upper, Lower: lower})
		}
	}
	return pairs
}
