package strategy

import (
	"testing"
	"time"

	"tradeopt/internal/md"
)

func seriesOf(closes ...float64) md.PriceSeries {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make(md.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = md.DailyClose{Date: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name   string
		series md.PriceSeries
		want   Trend
	}{
		{"short history", seriesOf(1, 2, 3), TrendInsufficientData},
		{"rising", seriesOf(1, 2, 3, 4, 5, 6), TrendUp},
		{"falling", seriesOf(6, 5, 4, 3, 2, 1), TrendDown},
		{"spike", seriesOf(10, 10, 10, 10, 10, 20), TrendSurge},
	}
	for _, c := range cases {
		if got := ClassifyTrend(c.series, 2, 4); got != c.want {
			t.Fatalf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}
