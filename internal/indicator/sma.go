package indicator

// SMAStream calculates Simple Moving Average over a rolling window.
// Uses a preallocated circular buffer and a running sum.
type SMAStream struct {
	period  int
	buf     []float64 // preallocated circular buffer
	idx     int       // current write position
	count   int       // total values received
	sum     float64
	current float64
}

// NewSMAStream creates a streaming SMA with the given period (>= 1).
func NewSMAStream(period int) *SMAStream {
	return &SMAStream{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMAStream) Name() string { return "SMA" }

func (s *SMAStream) Update(v float64) {
	if s.count >= s.period {
		// Subtract the oldest value being overwritten
		s.sum -= s.buf[s.idx]
	}

	s.buf[s.idx] = v
	s.sum += v
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMAStream) Value() float64 { return s.current }
func (s *SMAStream) Ready() bool    { return s.count >= s.period }

// SMA returns the simple moving average of values over period.
// out[i] is absent for i < period-1. A non-positive period, or one longer
// than values, yields an all-absent series without allocating a window.
func SMA(values []float64, period int) Series {
	if period <= 0 || period > len(values) {
		return make(Series, len(values))
	}
	return drive(NewSMAStream(period), values)
}
