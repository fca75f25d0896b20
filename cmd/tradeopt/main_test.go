package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeopt/internal/api"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFlatCSV(t *testing.T, dir string, days int, price float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Adj Close,Volume\n")
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%.2f,1000\n", start.AddDate(0, 0, i).Format(dateLayout), price, price, price, price, price)
	}
	path := filepath.Join(dir, "flat.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestImportThenOptimize(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "stock_data.db")
	csvPath := writeFlatCSV(t, dir, 40, 100)

	out, err := execute(t, "import", "FLAT", "--source", "csv", "--file", csvPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 40 bars for FLAT")

	out, err = execute(t, "optimize", "FLAT", "10000", "--db", db)
	require.NoError(t, err)
	var resp api.OptimizeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1.01, resp.UpperLimit)
	assert.Equal(t, 0.9, resp.LowerLimit)
	assert.Equal(t, 100, resp.HoldingQuantity)
	assert.Equal(t, 200, resp.CellsEvaluated)

	_, err = execute(t, "optimize", "NOPE", "10000", "--db", db)
	assert.ErrorContains(t, err, "ticker symbol not found")

	_, err = execute(t, "validate", "FLAT", "0.95", "0.9", "10000", "--db", db)
	assert.ErrorContains(t, err, "upper_limit must be greater than 1.0")
}

func TestLowercaseTickerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "stock_data.db")
	csvPath := writeFlatCSV(t, dir, 40, 100)

	_, err := execute(t, "import", "aapl", "--source", "csv", "--file", csvPath, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "optimize", "aapl", "10000", "--db", db)
	require.NoError(t, err)
	var resp api.OptimizeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "AAPL", resp.Ticker)
	assert.Equal(t, 100, resp.HoldingQuantity)

	out, err = execute(t, "validate", "aapl", "1.05", "0.95", "10000", "--db", db)
	require.NoError(t, err)
	var validated api.ValidateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &validated))
	assert.True(t, validated.TradesExecuted)
}

func TestImportRejectsUnknownSource(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "import", "FLAT", "--source", "ftp")
	assert.ErrorContains(t, err, `unknown source "ftp"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
}

func TestParseDay(t *testing.T) {
	d, err := parseDay("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDay("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDay("05/03/2024")
	assert.Error(t, err)
}
