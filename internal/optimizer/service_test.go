package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeopt/internal/config"
	"tradeopt/internal/engine"
	"tradeopt/internal/history"
	"tradeopt/internal/md"
	"tradeopt/internal/strategy"
)

func newService(t *testing.T, provider history.Provider) *Service {
	t.Helper()
	svc, err := NewService(provider, engine.NewRunner(config.DefaultEngine()))
	require.NoError(t, err)
	return svc
}

func TestServiceOptimizeTicker(t *testing.T) {
	svc := newService(t, &fakeProvider{series: map[string]md.PriceSeries{"AAPL": constantSeries(40, 100)}})

	out, err := svc.Optimize(context.Background(), "AAPL", 10_000)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out.Ticker)
	assert.Equal(t, 10_000.0, out.InitialCapital)
	assert.Equal(t, strategy.TrendDown, out.Trend)
	assert.Equal(t, strategy.Thresholds{Upper: 1.01, Lower: 0.9}, out.Best.Thresholds)
}

func TestServiceOptimizeErrors(t *testing.T) {
	svc := newService(t, &fakeProvider{series: map[string]md.PriceSeries{"FLAT": constantSeries(40, 100)}})
	ctx := context.Background()

	_, err := svc.Optimize(ctx, "AAPL", 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = svc.Optimize(ctx, "MISSING", 10_000)
	assert.ErrorIs(t, err, history.ErrNotFound)

	_, err = svc.Optimize(ctx, "FLAT", 500)
	assert.ErrorIs(t, err, ErrNoViableTrade)
}

func TestServiceTickerExistsAndTrend(t *testing.T) {
	svc := newService(t, &fakeProvider{series: map[string]md.PriceSeries{"AAPL": constantSeries(3, 100)}})
	ctx := context.Background()

	ok, err := svc.TickerExists(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.TickerExists(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	trend, err := svc.Trend(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, strategy.TrendInsufficientData, trend)
}

type collectingRecorder struct {
	decisions []engine.Decision
}

func (c *collectingRecorder) Append(decision engine.Decision) {
	c.decisions = append(c.decisions, decision)
}

func TestServiceRecordsOnlyValidations(t *testing.T) {
	svc := newService(t, &fakeProvider{series: map[string]md.PriceSeries{"AAPL": constantSeries(40, 100)}})
	rec := &collectingRecorder{}
	svc.RecordValidations(rec)
	ctx := context.Background()

	_, err := svc.Optimize(ctx, "AAPL", 10_000)
	require.NoError(t, err)
	assert.Empty(t, rec.decisions)

	result, err := svc.Validate(ctx, "AAPL", 1.05, 0.95, 10_000)
	require.NoError(t, err)
	require.Len(t, rec.decisions, 40)
	assert.Equal(t, result.RunID, rec.decisions[0].RunID)
}

func TestServiceMatchesTickersCaseInsensitively(t *testing.T) {
	svc := newService(t, &fakeProvider{series: map[string]md.PriceSeries{"AAPL": constantSeries(40, 100)}})
	ctx := context.Background()

	ok, err := svc.TickerExists(ctx, "aapl")
	require.NoError(t, err)
	assert.True(t, ok)

	out, err := svc.Optimize(ctx, "aapl", 10_000)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out.Ticker)

	_, err = svc.Trend(ctx, "Aapl")
	assert.NoError(t, err)
}
