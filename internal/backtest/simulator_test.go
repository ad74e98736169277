package backtest

import (
	"math"
	"testing"

	"strategy-backtester/internal/model"
)

func sigs(s string) []model.Signal {
	out := make([]model.Signal, len(s))
	for i, c := range s {
		switch c {
		case 'B':
			out[i] = model.SignalBuy
		case 'S':
			out[i] = model.SignalSell
		}
	}
	return out
}

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		state  PositionState
		sig    model.Signal
		next   PositionState
		action Action
	}{
		{Flat, model.SignalHold, Flat, ActionNone},
		{Flat, model.SignalBuy, Long, ActionEnter},
		{Flat, model.SignalSell, Flat, ActionNone},
		{Long, model.SignalHold, Long, ActionNone},
		{Long, model.SignalBuy, Long, ActionNone},
		{Long, model.SignalSell, Flat, ActionExit},
	}
	for _, tt := range tests {
		next, action := transition(tt.state, tt.sig)
		if next != tt.next || action != tt.action {
			t.Errorf("%s+%s: got (%s,%d), want (%s,%d)", tt.state, tt.sig, next, action, tt.next, tt.action)
		}
	}
}

func TestSimulate_RoundTrip(t *testing.T) {
	// Buy at 100 (bar 1), sell at 121 (bar 3).
	bars := barsFrom(90, 100, 110, 121, 50)
	sim, err := Simulate(bars, sigs(".B.S."))
	if err != nil {
		t.Fatal(err)
	}
	wantReturns := []float64{0, 0.1, 0.1, 0}
	wantEquity := []float64{1, 1.1, 1.21, 1.21}
	for i := range wantReturns {
		if math.Abs(sim.Returns[i]-wantReturns[i]) > 1e-12 || math.Abs(sim.Equity[i]-wantEquity[i]) > 1e-12 {
			t.Fatalf("step %d: r=%v eq=%v", i, sim.Returns[i], sim.Equity[i])
		}
	}
	if len(sim.Trades) != 1 {
		t.Fatalf("trades=%d", len(sim.Trades))
	}
	tr := sim.Trades[0]
	if tr.EntryTime != day || tr.ExitTime != 3*day || tr.EntryPrice != 100 || tr.ExitPrice != 121 {
		t.Fatalf("trade=%+v", tr)
	}
	if math.Abs(tr.PnL-21) > 1e-12 || math.Abs(tr.ReturnPct-21) > 1e-12 {
		t.Fatalf("pnl=%v returnPct=%v", tr.PnL, tr.ReturnPct)
	}
	if sim.Final != Flat {
		t.Fatalf("final=%s", sim.Final)
	}
}

func TestSimulate_OpenAtEnd_NoTrade(t *testing.T) {
	bars := barsFrom(100, 100, 110, 121)
	sim, err := Simulate(bars, sigs(".B.."))
	if err != nil {
		t.Fatal(err)
	}
	if len(sim.Trades) != 0 {
		t.Fatalf("open position produced trades: %+v", sim.Trades)
	}
	if sim.Final != Long {
		t.Fatalf("final=%s, want long", sim.Final)
	}
	if math.Abs(sim.Equity[len(sim.Equity)-1]-1.21) > 1e-12 {
		t.Fatalf("equity=%v", sim.Equity)
	}
}

func TestSimulate_IgnoresRedundantSignals(t *testing.T) {
	bars := barsFrom(100, 100, 105, 110, 100, 100)
	sim, err := Simulate(bars, sigs(".SBBSS"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sim.Trades) != 1 {
		t.Fatalf("trades=%+v", sim.Trades)
	}
	if sim.Trades[0].EntryPrice != 105 || sim.Trades[0].ExitPrice != 100 {
		t.Fatalf("trade=%+v", sim.Trades[0])
	}
}

func TestSimulate_LengthMismatch(t *testing.T) {
	if _, err := Simulate(barsFrom(1, 2, 3), sigs("..")); err == nil {
		t.Fatal("expected error")
	}
}
