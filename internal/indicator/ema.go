package indicator

// EMAStream calculates Exponential Moving Average.
// O(1) per update; seeded with the SMA of the first period values.
type EMAStream struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMAStream creates a streaming EMA with the given period (>= 1).
func NewEMAStream(period int) *EMAStream {
	return &EMAStream{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMAStream) Name() string { return "EMA" }

func (e *EMAStream) Update(v float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum += v
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	// EMA = (v * k) + (EMA_prev * (1 - k))
	e.current = (v * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMAStream) Value() float64 { return e.current }
func (e *EMAStream) Ready() bool    { return e.count >= e.period }

// EMA returns the exponential moving average of values with k = 2/(period+1).
// The first value, at index period-1, is the mean of the first period values.
func EMA(values []float64, period int) Series {
	if period <= 0 {
		return make(Series, len(values))
	}
	return drive(NewEMAStream(period), values)
}
