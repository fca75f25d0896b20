package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"tradeopt/internal/strategy"
)

const (
	ResultExecuted = "executed"
	ResultNoop     = "noop"
	ResultHold     = "hold"
	ResultError    = "error"
)

// Decision records what the policy wanted on one day and what happened.
type Decision struct {
	RunID        string          `json:"run_id"`
	Day          time.Time       `json:"day"`
	Close        float64         `json:"close"`
	ShortMA      float64         `json:"short_ma"`
	LongMA       float64         `json:"long_ma"`
	Intent       strategy.Action `json:"intent"`
	IntentQty    int             `json:"intent_qty"`
	ExecutedQty  int             `json:"executed_qty"`
	Reason       string          `json:"reason"`
	Result       string          `json:"result"`
	RejectReason string          `json:"reject_reason,omitempty"`
	Capital      float64         `json:"capital"`
	Holding      int             `json:"holding_quantity"`
	AvgPrice     float64         `json:"average_price"`
}

// DecisionLogger appends decisions to a file as newline-delimited JSON.
type DecisionLogger struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewDecisionLogger(path string) (*DecisionLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &DecisionLogger{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (d *DecisionLogger) Append(decision Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload, err := json.Marshal(decision)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal decision: %v\n", err)
		return
	}
	if _, err := d.writer.Write(append(payload, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write decision: %v\n", err)
		return
	}
	if err := d.writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush decision log: %v\n", err)
	}
}

func (d *DecisionLogger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writer.Flush(); err != nil {
		_ = d.file.Close()
		return err
	}
	return d.file.Close()
}
