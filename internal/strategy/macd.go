package strategy

import "strategy-backtester/internal/indicator"

// MACD trades histogram zero-line crosses: buy when macd-signal turns
// positive, sell when it turns negative.
type MACD struct {
	Fast   int `json:"fast"`
	Slow   int `json:"slow"`
	Signal int `json:"signal"`
}

func (c MACD) Kind() Kind { return KindMACD }

func (c MACD) Params() map[string]float64 {
	return map[string]float64{
		"fast":   float64(c.Fast),
		"slow":   float64(c.Slow),
		"signal": float64(c.Signal),
	}
}

func (c MACD) Validate() error {
	for _, p := range []struct {
		name string
		v    int
	}{{"fast", c.Fast}, {"slow", c.Slow}, {"signal", c.Signal}} {
		if err := positive(KindMACD, p.name, p.v); err != nil {
			return err
		}
	}
	if c.Fast >= c.Slow {
		return invalid(KindMACD, "fast", "must be below slow (%d >= %d)", c.Fast, c.Slow)
	}
	return nil
}

func (c MACD) signals(closes []float64) []Signal {
	hist := indicator.MACD(closes, c.Fast, c.Slow, c.Signal).Hist
	return crossSignals(len(closes), hist.At)
}
