package strategy

import "strategy-backtester/internal/indicator"

// Breakout buys a close above the prior Lookback-bar high and sells a close
// below the prior Lookback-bar low.
type Breakout struct {
	Lookback int `json:"lookback"`
}

func (c Breakout) Kind() Kind { return KindBreakout }

func (c Breakout) Params() map[string]float64 {
	return map[string]float64{"lookback": float64(c.Lookback)}
}

func (c Breakout) Validate() error {
	return positive(KindBreakout, "lookback", c.Lookback)
}

func (c Breakout) signals(closes []float64) []Signal {
	hi := indicator.Highest(closes, c.Lookback)
	lo := indicator.Lowest(closes, c.Lookback)
	out := make([]Signal, len(closes))
	for i := 1; i < len(closes); i++ {
		// channel of the window ending at the previous bar
		h, okH := hi.At(i - 1)
		l, okL := lo.At(i - 1)
		if !okH || !okL {
			continue
		}
		switch {
		case closes[i] > h:
			out[i] = Buy
		case closes[i] < l:
			out[i] = Sell
		}
	}
	return out
}
