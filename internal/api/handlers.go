// Package api is the HTTP boundary: form-encoded optimize and validate
// requests, a trend lookup, health and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradeopt/internal/engine"
	"tradeopt/internal/history"
	"tradeopt/internal/optimizer"
	"tradeopt/internal/strategy"
)

const (
	msgTickerNotFound  = "ticker symbol not found"
	msgOptimizeMissing = "ticker and initial_capital are required"
	msgValidateMissing = "ticker, upper_limit, lower_limit and initial_capital are required"
	msgNoViableTrade   = "no viable trade: no threshold pair executed a trade"
	msgDataSource      = "price history is unavailable"
	msgInternal        = "internal error"
)

// Service is what the handlers need from the optimizer layer.
type Service interface {
	TickerExists(ctx context.Context, ticker string) (bool, error)
	Optimize(ctx context.Context, ticker string, capital float64) (optimizer.TickerOutcome, error)
	Validate(ctx context.Context, ticker string, upper, lower, capital float64) (engine.Result, error)
	Trend(ctx context.Context, ticker string) (strategy.Trend, error)
}

type Handlers struct {
	svc Service
}

func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

type optimizeForm struct {
	Ticker         string `form:"ticker" binding:"required"`
	InitialCapital int64  `form:"initial_capital" binding:"required,gt=0"`
}

type validateForm struct {
	Ticker         string  `form:"ticker" binding:"required"`
	UpperLimit     float64 `form:"upper_limit" binding:"required"`
	LowerLimit     float64 `form:"lower_limit" binding:"required"`
	InitialCapital int64   `form:"initial_capital" binding:"required"`
}

type trendQuery struct {
	Ticker string `form:"ticker" binding:"required"`
}

// Summary is the rounded view of one simulation returned to clients.
type Summary struct {
	Ticker          string  `json:"ticker"`
	UpperLimit      float64 `json:"upper_limit"`
	LowerLimit      float64 `json:"lower_limit"`
	InitialCapital  float64 `json:"initial_capital"`
	FinalCapital    float64 `json:"final_capital"`
	HoldingQuantity int     `json:"holding_quantity"`
	AveragePrice    float64 `json:"average_price"`
	LastPrice       float64 `json:"last_price"`
	Score           float64 `json:"score"`
	TradesExecuted  bool    `json:"trades_executed"`
}

type OptimizeResponse struct {
	Summary
	CellsEvaluated int            `json:"cells_evaluated"`
	ViableCells    int            `json:"viable_cells"`
	Trend          strategy.Trend `json:"trend"`
}

type ValidateResponse struct {
	Summary
	InsufficientHistory bool              `json:"insufficient_history"`
	Trace               []engine.Decision `json:"trace"`
}

type TrendResponse struct {
	Ticker string         `json:"ticker"`
	Trend  strategy.Trend `json:"trend"`
}

func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) HandleOptimize(c *gin.Context) {
	var form optimizeForm
	if err := c.ShouldBind(&form); err != nil {
		slog.Info("optimize request rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgOptimizeMissing})
		return
	}
	ctx := c.Request.Context()

	exists, err := h.svc.TickerExists(ctx, form.Ticker)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgTickerNotFound})
		return
	}

	out, err := h.svc.Optimize(ctx, form.Ticker, float64(form.InitialCapital))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOptimizeResponse(out))
}

func (h *Handlers) HandleValidate(c *gin.Context) {
	var form validateForm
	if err := c.ShouldBind(&form); err != nil {
		slog.Info("validate request rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgValidateMissing})
		return
	}

	result, err := h.svc.Validate(c.Request.Context(), form.Ticker, form.UpperLimit, form.LowerLimit, float64(form.InitialCapital))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewValidateResponse(form.Ticker, result))
}

func (h *Handlers) HandleTrend(c *gin.Context) {
	var query trendQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	trend, err := h.svc.Trend(c.Request.Context(), query.Ticker)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TrendResponse{Ticker: query.Ticker, Trend: trend})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, optimizer.ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidMessage(err)})
	case errors.Is(err, history.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgTickerNotFound})
	case errors.Is(err, optimizer.ErrNoViableTrade):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoViableTrade})
	case history.IsDataSourceError(err):
		slog.Error("data source failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgDataSource})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func invalidMessage(err error) string {
	var invalid *optimizer.InvalidParameterError
	if errors.As(err, &invalid) {
		return invalid.Message
	}
	return err.Error()
}

func NewOptimizeResponse(out optimizer.TickerOutcome) OptimizeResponse {
	return OptimizeResponse{
		Summary:        summarize(out.Ticker, out.Best),
		CellsEvaluated: out.CellsEvaluated,
		ViableCells:    out.ViableCells,
		Trend:          out.Trend,
	}
}

func NewValidateResponse(ticker string, result engine.Result) ValidateResponse {
	trace := result.Trace
	if trace == nil {
		trace = []engine.Decision{}
	}
	return ValidateResponse{
		Summary:             summarize(ticker, result),
		InsufficientHistory: result.InsufficientHistory,
		Trace:               trace,
	}
}

func summarize(ticker string, r engine.Result) Summary {
	return Summary{
		Ticker:          ticker,
		UpperLimit:      round2(r.Upper),
		LowerLimit:      round2(r.Lower),
		InitialCapital:  round2(r.InitialCapital),
		FinalCapital:    round2(r.Final.Capital),
		HoldingQuantity: r.Final.Position.Qty,
		AveragePrice:    round2(r.Final.Position.AvgEntry),
		LastPrice:       round2(r.LastPrice),
		Score:           round2(r.Score),
		TradesExecuted:  r.TradesExecuted,
	}
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
