package strategy

import "strategy-backtester/internal/indicator"

// Momentum trades rate-of-change zero crosses over Period bars. The bar
// before the first ROC value counts as zero momentum, so a trend already
// under way when ROC becomes available enters immediately.
type Momentum struct {
	Period int `json:"period"`
}

func (c Momentum) Kind() Kind { return KindMomentum }

func (c Momentum) Params() map[string]float64 {
	return map[string]float64{"period": float64(c.Period)}
}

func (c Momentum) Validate() error {
	return positive(KindMomentum, "period", c.Period)
}

func (c Momentum) signals(closes []float64) []Signal {
	roc := indicator.ROC(closes, c.Period)
	first := roc.FirstValid()
	return crossSignals(len(closes), func(i int) (float64, bool) {
		v, ok := roc.At(i)
		if !ok && i == first-1 {
			return 0, true
		}
		return v, ok
	})
}
