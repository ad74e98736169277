package backtest

import (
	"errors"
	"fmt"
)

// MinBars is the fewest bars a backtest accepts.
const MinBars = 20

// ErrInsufficientData is matched by every *InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError is returned when fewer than Min bars are supplied.
type InsufficientDataError struct {
	Bars int
	Min  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d bars, need at least %d", e.Bars, e.Min)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }
