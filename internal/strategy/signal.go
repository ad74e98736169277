package strategy

import (
	"errors"

	"strategy-backtester/internal/model"
)

// Signal is re-exported from model for callers that only import strategy.
type Signal = model.Signal

const (
	Hold = model.SignalHold
	Buy  = model.SignalBuy
	Sell = model.SignalSell
)

// Generate maps bars to one Signal per bar. Index 0 is always Hold and the
// signal at bar i depends only on bars <= i. Absent indicator values leave
// the signal at Hold.
func Generate(bars []model.PriceBar, cfg Config) ([]Signal, error) {
	if cfg == nil {
		return nil, errors.New("strategy: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sigs := cfg.signals(model.Closes(bars))
	if len(sigs) > 0 {
		sigs[0] = Hold
	}
	return sigs, nil
}

// diffFunc returns a signed distance from the crossing line at bar i, or
// false when either operand is absent.
type diffFunc func(i int) (float64, bool)

// crossSignals emits Buy when d crosses from <= 0 to > 0 and Sell when it
// crosses from >= 0 to < 0. Both bars must be defined.
func crossSignals(n int, d diffFunc) []Signal {
	out := make([]Signal, n)
	for i := 1; i < n; i++ {
		cur, ok := d(i)
		if !ok {
			continue
		}
		prev, okPrev := d(i - 1)
		if !okPrev {
			continue
		}
		switch {
		case prev <= 0 && cur > 0:
			out[i] = Buy
		case prev >= 0 && cur < 0:
			out[i] = Sell
		}
	}
	return out
}
