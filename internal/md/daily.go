package md

import (
	"log/slog"
	"sort"
	"time"
)

// DailyCloses collapses raw bars into one close per calendar day. The latest
// observation of a day wins; days without observations are skipped rather than
// filled. Malformed rows are dropped. An empty result is logged, never returned
// as an error, so callers must handle len == 0 themselves.
func DailyCloses(bars []Bar) PriceSeries {
	if len(bars) == 0 {
		slog.Warn("daily prices unavailable", "reason", "no_rows")
		return PriceSeries{}
	}

	type slot struct {
		ts    time.Time
		close float64
	}
	days := make(map[dayKey]slot, len(bars))
	dropped := 0
	for _, bar := range bars {
		if !bar.valid() {
			dropped++
			continue
		}
		day := keyOf(bar.Timestamp)
		current, ok := days[day]
		if !ok || !bar.Timestamp.Before(current.ts) {
			days[day] = slot{ts: bar.Timestamp, close: bar.Close}
		}
	}
	if dropped > 0 {
		slog.Warn("dropped malformed price rows", "dropped", dropped, "rows", len(bars))
	}
	if len(days) == 0 {
		slog.Warn("daily prices unavailable", "reason", "no_valid_rows", "rows", len(bars))
		return PriceSeries{}
	}

	keys := make([]dayKey, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].before(keys[j])
	})
	series := make(PriceSeries, 0, len(keys))
	for _, day := range keys {
		s := days[day]
		series = append(series, DailyClose{Date: day.midnight(s.ts.Location()), Close: s.close})
	}
	return series
}

// dayKey is the calendar date of a timestamp in its own zone. time.Time is not
// a usable map key here: equal instants parsed with a non-hour offset carry
// distinct *Location pointers.
type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}

func (k dayKey) before(other dayKey) bool {
	if k.year != other.year {
		return k.year < other.year
	}
	if k.month != other.month {
		return k.month < other.month
	}
	return k.day < other.day
}

func (k dayKey) midnight(loc *time.Location) time.Time {
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc)
}
