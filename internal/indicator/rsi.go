package indicator

// lossEpsilon is the smoothed-loss level below which RSI saturates at 100.
const lossEpsilon = 1e-12

// DefaultRSIPeriod is the conventional Wilder lookback.
const DefaultRSIPeriod = 14

// RSIStream calculates the Relative Strength Index using Wilder's smoothing.
// Update is O(1); the first value is produced after period price changes.
type RSIStream struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

// NewRSIStream creates a streaming RSI with the given period (typically 14).
func NewRSIStream(period int) *RSIStream {
	return &RSIStream{period: period}
}

func (r *RSIStream) Name() string { return "RSI" }

func (r *RSIStream) Update(v float64) {
	r.count++

	if r.count == 1 {
		// First value: no delta yet
		r.prevClose = v
		return
	}

	delta := v - r.prevClose
	r.prevClose = v

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		// Accumulation phase: raw sums
		r.avgGain += gain
		r.avgLoss += loss

		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = rsiFrom(r.avgGain, r.avgLoss)
		}
		return
	}

	// Wilder's smoothing: avg = (prev*(period-1) + x) / period
	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = rsiFrom(r.avgGain, r.avgLoss)
}

func (r *RSIStream) Value() float64 { return r.current }
func (r *RSIStream) Ready() bool    { return r.count > r.period }

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss < lossEpsilon {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// RSI returns Wilder's RSI over values. The first value is at index period.
// When the smoothed loss is zero the RSI is 100.
func RSI(values []float64, period int) Series {
	if period <= 0 {
		return make(Series, len(values))
	}
	return drive(NewRSIStream(period), values)
}
