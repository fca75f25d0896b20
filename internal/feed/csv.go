package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradeopt/internal/md"
)

var csvDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// CSVFile reads bars from a file with a header row such as the one Yahoo
// exports: Date,Open,High,Low,Close,Adj Close,Volume. Only date and close are
// required.
type CSVFile struct {
	Path string
}

func (c CSVFile) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]md.Bar, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ParseCSV(f, ticker)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	out := bars[:0]
	for _, b := range bars {
		if inRange(b.Timestamp, start, end) {
			out = append(out, b)
		}
	}
	slog.Info("bars fetched", "source", "csv", "path", c.Path, "symbol", ticker, "count", len(out))
	return out, ctx.Err()
}

// ParseCSV decodes every data row of r into a bar for ticker. Rows with a
// malformed date or price fail the whole read with the offending line.
func ParseCSV(r io.Reader, ticker string) ([]md.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: missing header")
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeColumn(name)] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv: missing %q column", required)
		}
	}

	var bars []md.Bar
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		bar := md.Bar{Symbol: ticker}
		if bar.Timestamp, err = parseCSVDate(record[cols["date"]]); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
			{"adj_close", &bar.AdjClose},
			{"volume", &bar.Volume},
		}
		for _, field := range fields {
			idx, ok := cols[field.name]
			if !ok || strings.TrimSpace(record[idx]) == "" {
				continue
			}
			v, err := decimal.NewFromString(strings.TrimSpace(record[idx]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, field.name, err)
			}
			*field.dst = v.InexactFloat64()
		}
		if bar.AdjClose == 0 {
			bar.AdjClose = bar.Close
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	return strings.ReplaceAll(name, " ", "_")
}

func parseCSVDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}
