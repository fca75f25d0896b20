package optimizer

import "errors"

var (
	// ErrInvalidParameter matches every *InvalidParameterError.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoViableTrade means no grid cell executed a single trade.
	ErrNoViableTrade = errors.New("no viable trade")
)

// InvalidParameterError names the offending input and explains the bound it
// violated.
type InvalidParameterError struct {
	Field   string
	Message string
	Err     error
}

func (e *InvalidParameterError) Error() string {
	return e.Message
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func (e *InvalidParameterError) Unwrap() error {
	return e.Err
}
