// Package indicator provides technical indicator calculations over a
// close-price sequence.
//
// Streaming indicators (SMA, EMA, SMMA, RSI) implement the Indicator interface
// and are fed one value at a time. The batch functions (SMA, EMA, SMMA, RSI,
// MACD, Highest, Lowest, ROC) drive them over a full sequence and return a Series
// aligned with the input, where warm-up bars hold an absent Value.
//
// Batch functions are pure: they never mutate the input and allocate exactly
// one output Series per call. Overlay computes a named set of them for charts.
package indicator

// MaxPeriod bounds every lookback accepted by validators. Batch functions
// never size a window beyond the input length, so this only caps how far a
// request can reach.
const MaxPeriod = 1_000_000

// Indicator is the interface for streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next value and recalculates.
	Update(v float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// drive feeds values through ind and records its output wherever it is ready.
func drive(ind Indicator, values []float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		ind.Update(v)
		if ind.Ready() {
			out[i] = Of(ind.Value())
		}
	}
	return out
}
