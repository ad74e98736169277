package strategy

import "strategy-backtester/internal/indicator"

// SMACross implements a simple SMA crossover strategy.
//
// Buy signal: fast SMA crosses above slow SMA (golden cross)
// Sell signal: fast SMA crosses below slow SMA (death cross)
type SMACross struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
}

func (c SMACross) Kind() Kind { return KindSMACross }

func (c SMACross) Params() map[string]float64 {
	return map[string]float64{"fast": float64(c.Fast), "slow": float64(c.Slow)}
}

func (c SMACross) Validate() error {
	if err := positive(KindSMACross, "fast", c.Fast); err != nil {
		return err
	}
	if err := positive(KindSMACross, "slow", c.Slow); err != nil {
		return err
	}
	if c.Fast >= c.Slow {
		return invalid(KindSMACross, "fast", "must be below slow (%d >= %d)", c.Fast, c.Slow)
	}
	return nil
}

func (c SMACross) signals(closes []float64) []Signal {
	fast := indicator.SMA(closes, c.Fast)
	slow := indicator.SMA(closes, c.Slow)
	return crossSignals(len(closes), func(i int) (float64, bool) {
		f, okF := fast.At(i)
		s, okS := slow.At(i)
		return f - s, okF && okS
	})
}
