// Package history defines how the optimizer obtains daily prices without
// knowing where they are stored.
package history

import (
	"context"
	"errors"
	"fmt"

	"tradeopt/internal/md"
)

// ErrNotFound reports a ticker without any stored rows.
var ErrNotFound = errors.New("no price history for ticker")

// DataSourceError wraps an infrastructure failure while reading history. It
// is never a problem with the caller's input.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// IsDataSourceError reports whether err carries a DataSourceError.
func IsDataSourceError(err error) bool {
	var dsErr *DataSourceError
	return errors.As(err, &dsErr)
}

type Provider interface {
	// LoadPriceHistory returns the prepared daily series for ticker. It fails
	// with ErrNotFound when the ticker has no rows and with *DataSourceError
	// when the backing store cannot be queried.
	LoadPriceHistory(ctx context.Context, ticker string) (md.PriceSeries, error)
	TickerExists(ctx context.Context, ticker string) (bool, error)
}
