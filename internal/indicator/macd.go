package indicator

// MACDResult groups the three MACD output series.
type MACDResult struct {
	MACDLine   Series `json:"macdLine"`
	SignalLine Series `json:"signalLine"`
	Hist       Series `json:"hist"`
}

// MACD computes macdLine = EMA(fast) - EMA(slow), signalLine = EMA(signal)
// of macdLine with warm-up bars counted as 0, and hist = macdLine - signalLine.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	line := sub(EMA(values, fast), EMA(values, slow))
	sig := EMA(line.Floats(0), signal)
	return MACDResult{
		MACDLine:   line,
		SignalLine: sig,
		Hist:       sub(line, sig),
	}
}
