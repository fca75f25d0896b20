package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradeopt/internal/api"
	"tradeopt/internal/feed"
)

const dateLayout = "2006-01-02"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the optimize and validate HTTP endpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return api.Serve(ctx, cfg.Server.Addr, api.NewRouter(api.NewHandlers(a.svc)))
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize TICKER INITIAL_CAPITAL",
	Short: "Find the best upper and lower limits for a ticker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		capital, err := parseAmount("initial_capital", args[1])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		exists, err := a.svc.TickerExists(ctx, args[0])
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("ticker symbol not found: %s", args[0])
		}
		out, err := a.svc.Optimize(ctx, args[0], capital)
		if err != nil {
			return err
		}
		return printJSON(cmd, api.NewOptimizeResponse(out))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate TICKER UPPER_LIMIT LOWER_LIMIT INITIAL_CAPITAL",
	Short: "Replay one threshold pair over a ticker's history",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		upper, err := parseAmount("upper_limit", args[1])
		if err != nil {
			return err
		}
		lower, err := parseAmount("lower_limit", args[2])
		if err != nil {
			return err
		}
		capital, err := parseAmount("initial_capital", args[3])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.svc.Validate(ctx, args[0], upper, lower, capital)
		if err != nil {
			return err
		}
		return printJSON(cmd, api.NewValidateResponse(args[0], result))
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend TICKER",
	Short: "Label the latest moving-average trend of a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		trend, err := a.svc.Trend(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, api.TrendResponse{Ticker: args[0], Trend: trend})
	},
}

var importOpts struct {
	source string
	file   string
	start  string
	end    string
}

var importCmd = &cobra.Command{
	Use:   "import TICKER",
	Short: "Load daily bars from alpaca, influx or a CSV file into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseDay(importOpts.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		end, err := parseDay(importOpts.end)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		if !end.IsZero() {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}

		var src feed.Source
		switch importOpts.source {
		case "alpaca":
			src = feed.NewAlpaca(cfg.Alpaca)
		case "influx":
			influx := feed.NewInflux(cfg.Influx)
			defer influx.Close()
			src = influx
		case "csv":
			if importOpts.file == "" {
				return fmt.Errorf("--file is required for csv imports")
			}
			src = feed.CSVFile{Path: importOpts.file}
		default:
			return fmt.Errorf("unknown source %q (want alpaca, influx or csv)", importOpts.source)
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		written, err := feed.Import(ctx, src, a.store, args[0], start, end)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d bars for %s\n", written, args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importOpts.source, "source", "csv", "bar source: alpaca, influx or csv")
	importCmd.Flags().StringVar(&importOpts.file, "file", "", "CSV file to read when --source=csv")
	importCmd.Flags().StringVar(&importOpts.start, "start", "", "first day to import (YYYY-MM-DD)")
	importCmd.Flags().StringVar(&importOpts.end, "end", "", "last day to import (YYYY-MM-DD)")
}

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}
