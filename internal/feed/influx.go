package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"tradeopt/internal/config"
	"tradeopt/internal/md"
)

const measurement = "stock_prices"

// defaultLookback bounds queries that leave start open; Flux needs a range.
const defaultLookback = 365 * 24 * time.Hour

// Influx reads bars written to the stock_prices measurement, one field per
// price column and a ticker tag.
type Influx struct {
	client influxdb2.Client
	query  api.QueryAPI
	bucket string
}

func NewInflux(cfg config.Influx) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Influx{client: client, query: client.QueryAPI(cfg.Org), bucket: cfg.Bucket}
}

func (i *Influx) Close() {
	i.client.Close()
}

func (i *Influx) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]md.Bar, error) {
	symbol, err := SanitizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	flux := fluxQuery(i.bucket, symbol, start, end, time.Now())

	result, err := i.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", err)
	}
	if result == nil {
		return []md.Bar{}, nil
	}
	defer result.Close()

	bars := make([]md.Bar, 0)
	for result.Next() {
		record := result.Record()
		bars = append(bars, barFromValues(symbol, record.Time(), record.Values()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("influx result: %w", err)
	}
	slog.Info("bars fetched", "source", "influx", "symbol", symbol, "count", len(bars))
	return bars, nil
}

func fluxQuery(bucket, symbol string, start, end, now time.Time) string {
	if start.IsZero() {
		start = now.Add(-defaultLookback)
	}
	stop := "now()"
	if !end.IsZero() {
		// range stop is exclusive
		stop = end.Add(time.Nanosecond).UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(`from(bucket: "%s")
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == "%s")
  |> filter(fn: (r) => r.ticker == "%s")
  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"], desc: false)`,
		bucket, start.UTC().Format(time.RFC3339Nano), stop, measurement, symbol)
}

func barFromValues(symbol string, ts time.Time, values map[string]interface{}) md.Bar {
	bar := md.Bar{
		Symbol:    symbol,
		Timestamp: ts.UTC(),
		Open:      number(values["open"]),
		High:      number(values["high"]),
		Low:       number(values["low"]),
		Close:     number(values["close"]),
		AdjClose:  number(values["adj_close"]),
		Volume:    number(values["volume"]),
	}
	if bar.AdjClose == 0 {
		bar.AdjClose = bar.Close
	}
	return bar
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}
