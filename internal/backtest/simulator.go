package backtest

import (
	"fmt"

	"strategy-backtester/internal/model"
)

// Simulation is the raw output of the position simulator.
type Simulation struct {
	Equity  []float64
	Returns []float64
	Trades  []model.Trade
	// Final is the state after the last bar; Long means an open position
	// that was marked to market but produced no Trade.
	Final PositionState
}

// Simulate runs the flat/long state machine over bars and signals, one unit
// of exposure, filling at the close of the signal bar. For every step
// i-1 → i the bar return compounds into equity if the position was long
// during that step; otherwise the recorded return is 0.
func Simulate(bars []model.PriceBar, signals []model.Signal) (Simulation, error) {
	if len(signals) != len(bars) {
		return Simulation{}, fmt.Errorf("simulate: %d signals for %d bars", len(signals), len(bars))
	}
	if len(bars) == 0 {
		return Simulation{}, nil
	}

	n := len(bars) - 1
	sim := Simulation{
		Equity:  make([]float64, 0, n),
		Returns: make([]float64, 0, n),
		Trades:  []model.Trade{},
	}

	var (
		state      = Flat
		equity     = 1.0
		entryPrice float64
		entryTime  int64
	)

	step := func(i int) {
		var action Action
		state, action = transition(state, signals[i])
		switch action {
		case ActionEnter:
			entryPrice = bars[i].Close
			entryTime = bars[i].TS
		case ActionExit:
			sim.Trades = append(sim.Trades, model.NewTrade(entryTime, bars[i].TS, entryPrice, bars[i].Close))
		}
	}

	step(0)
	for i := 1; i < len(bars); i++ {
		r := 0.0
		if state == Long {
			prev := bars[i-1].Close
			r = (bars[i].Close - prev) / prev
			equity *= 1 + r
		}
		sim.Equity = append(sim.Equity, equity)
		sim.Returns = append(sim.Returns, r)
		step(i)
	}
	sim.Final = state
	return sim, nil
}
