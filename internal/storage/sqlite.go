package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"tradeopt/internal/history"
	"tradeopt/internal/md"
)

const DefaultHistoryDays = 30

// dateLayouts are accepted when reading the date column; rows written by
// other loaders use plain dates or pandas-style timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type Store struct {
	db          *sql.DB
	historyDays int
}

var _ history.Provider = (*Store)(nil)

func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS stock_data(
		ticker TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		adj_close REAL,
		volume REAL,
		PRIMARY KEY (ticker, date)
	)`)
	return err
}

// NewStore reads at most historyDays of the most recent rows per ticker.
func NewStore(db *sql.DB, historyDays int) *Store {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Store{db: db, historyDays: historyDays}
}

// SaveBars upserts bars for ticker in one transaction and returns the number
// of rows written.
func (s *Store) SaveBars(ctx context.Context, ticker string, bars []md.Bar) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &history.DataSourceError{Op: "begin", Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stock_data(ticker,date,open,high,low,close,adj_close,volume)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(ticker,date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, adj_close=excluded.adj_close, volume=excluded.volume`)
	if err != nil {
		_ = tx.Rollback()
		return 0, &history.DataSourceError{Op: "prepare", Err: err}
	}
	defer stmt.Close()

	written := 0
	for _, bar := range bars {
		if bar.Timestamp.IsZero() {
			continue
		}
		_, err := stmt.ExecContext(ctx, ticker, bar.Timestamp.UTC().Format(time.RFC3339),
			bar.Open, bar.High, bar.Low, bar.Close, bar.AdjClose, bar.Volume)
		if err != nil {
			_ = tx.Rollback()
			return 0, &history.DataSourceError{Op: "insert", Err: err}
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, &history.DataSourceError{Op: "commit", Err: err}
	}
	slog.Info("stored price rows", "ticker", ticker, "rows", written)
	return written, nil
}

func (s *Store) LoadPriceHistory(ctx context.Context, ticker string) (md.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, open, high, low, close, adj_close, volume
		FROM stock_data
		WHERE ticker=?
		ORDER BY date DESC
		LIMIT ?`, ticker, s.historyDays)
	if err != nil {
		slog.Error("database error occurred", "ticker", ticker, "error", err)
		return nil, &history.DataSourceError{Op: "query", Err: err}
	}
	defer rows.Close()

	var bars []md.Bar
	for rows.Next() {
		var (
			date                                       string
			open, high, low, closePx, adjClose, volume sql.NullFloat64
		)
		if err := rows.Scan(&date, &open, &high, &low, &closePx, &adjClose, &volume); err != nil {
			return nil, &history.DataSourceError{Op: "scan", Err: err}
		}
		bars = append(bars, md.Bar{
			Symbol:    ticker,
			Timestamp: parseDate(date),
			Open:      open.Float64,
			High:      high.Float64,
			Low:       low.Float64,
			Close:     orNaN(closePx),
			AdjClose:  adjClose.Float64,
			Volume:    volume.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &history.DataSourceError{Op: "iterate", Err: err}
	}
	if len(bars) == 0 {
		slog.Error("no data found for ticker", "ticker", ticker)
		return nil, fmt.Errorf("%w: %s", history.ErrNotFound, ticker)
	}

	slog.Info("loaded data from database", "ticker", ticker, "rows", len(bars))
	return md.DailyCloses(bars), nil
}

func (s *Store) TickerExists(ctx context.Context, ticker string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM stock_data WHERE ticker=?)`, ticker).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Error("database error occurred", "ticker", ticker, "error", err)
		return false, &history.DataSourceError{Op: "exists", Err: err}
	}
	return exists, nil
}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
