package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradeopt/internal/config"
	"tradeopt/internal/md"
)

const (
	alpacaAttempts = 3
	alpacaBackoff  = 2 * time.Second
)

type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Alpaca reads historical daily bars from the Alpaca market data API.
type Alpaca struct {
	client  barsClient
	feed    marketdata.Feed
	backoff time.Duration
}

func NewAlpaca(cfg config.Alpaca) *Alpaca {
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return &Alpaca{client: client, feed: parseFeed(cfg.Feed), backoff: alpacaBackoff}
}

func (a *Alpaca) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]md.Bar, error) {
	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      start,
		End:        end,
		Feed:       a.feed,
	}

	var (
		raw []marketdata.Bar
		err error
	)
	for attempt := 1; attempt <= alpacaAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err = a.client.GetBars(ticker, req)
		if err == nil {
			break
		}
		slog.Warn("fetch bars failed", "symbol", ticker, "attempt", attempt, "error", err)
		if attempt == alpacaAttempts {
			return nil, fmt.Errorf("get bars %s: %w", ticker, err)
		}
		if err := waitForContext(ctx, a.backoff); err != nil {
			return nil, err
		}
	}

	bars := make([]md.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, md.Bar{
			Symbol:    ticker,
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			AdjClose:  b.Close,
			Volume:    float64(b.Volume),
		})
	}
	slog.Info("bars fetched", "source", "alpaca", "symbol", ticker, "count", len(bars), "feed", a.feed)
	return bars, nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
