package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tradeopt/internal/config"
	"tradeopt/internal/engine"
	"tradeopt/internal/optimizer"
	"tradeopt/internal/storage"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "tradeopt",
	Short:         "Search moving-average trading thresholds over stored price history",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cmd.Flags())
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		cfg = loaded
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))
		return nil
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd, optimizeCmd, validateCmd, trendCmd, importCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// app bundles what every command opens from configuration.
type app struct {
	db        *sql.DB
	store     *storage.Store
	svc       *optimizer.Service
	decisions *engine.DecisionLogger
}

func openApp(ctx context.Context) (*app, error) {
	db, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	if err := storage.InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	store := storage.NewStore(db, cfg.Engine.MinDataPoints)

	svc, err := optimizer.NewService(store, engine.NewRunner(cfg.Engine))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a := &app{db: db, store: store, svc: svc}

	if cfg.DecisionsPath != "" {
		a.decisions, err = engine.NewDecisionLogger(cfg.DecisionsPath)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("decision logger: %w", err)
		}
		svc.RecordValidations(a.decisions)
	}
	slog.Info("configuration loaded", "db", cfg.Database.Path, "mode", cfg.Engine.Mode,
		"history_days", cfg.Engine.MinDataPoints, "workers", cfg.Engine.Workers)
	return a, nil
}

func (a *app) Close() {
	if a.decisions != nil {
		if err := a.decisions.Close(); err != nil {
			slog.Error("failed to close decision logger", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseAmount(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, value)
	}
	return v, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
