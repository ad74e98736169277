package indicator

// SMMAStream calculates the Smoothed Moving Average (Wilder-style smoothing).
// First value is SMA(period), then SMMA = (prev*(period-1) + price) / period.
type SMMAStream struct {
	period  int
	count   int
	sum     float64
	current float64
}

// NewSMMAStream creates a streaming SMMA with the given period (>= 1).
func NewSMMAStream(period int) *SMMAStream {
	return &SMMAStream{period: period}
}

func (s *SMMAStream) Name() string { return "SMMA" }

func (s *SMMAStream) Update(v float64) {
	s.count++

	if s.count <= s.period {
		// Accumulate for initial SMA seed
		s.sum += v
		if s.count == s.period {
			s.current = s.sum / float64(s.period)
		}
		return
	}

	s.current = (s.current*float64(s.period-1) + v) / float64(s.period)
}

func (s *SMMAStream) Value() float64 { return s.current }
func (s *SMMAStream) Ready() bool    { return s.count >= s.period }

// SMMA returns the Wilder-smoothed moving average of values over period.
func SMMA(values []float64, period int) Series {
	if period <= 0 {
		return make(Series, len(values))
	}
	return drive(NewSMMAStream(period), values)
}
