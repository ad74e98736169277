package backtest

import "strategy-backtester/internal/model"

// PositionState is the exposure held between bars.
type PositionState int8

const (
	Flat PositionState = iota
	Long
)

func (s PositionState) String() string {
	switch s {
	case Flat:
		return "flat"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// Action is what a transition does at the current bar's close.
type Action int8

const (
	ActionNone Action = iota
	ActionEnter
	ActionExit
)

// transition is the full state table. Flat+Buy enters, Long+Sell exits,
// everything else keeps the state. There is no terminal transition: a Long
// position at the last bar stays open.
func transition(s PositionState, sig model.Signal) (PositionState, Action) {
	switch {
	case s == Flat && sig == model.SignalBuy:
		return Long, ActionEnter
	case s == Long && sig == model.SignalSell:
		return Flat, ActionExit
	default:
		return s, ActionNone
	}
}
