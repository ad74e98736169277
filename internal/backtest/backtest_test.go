package backtest

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"strategy-backtester/internal/model"
	"strategy-backtester/internal/strategy"
)

const day = int64(86_400_000)

func barsFrom(closes ...float64) []model.PriceBar {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{TS: int64(i) * day, Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func walk(n int, seed uint32) []float64 {
	out := make([]float64, n)
	p := 100.0
	x := seed
	for i := range out {
		x = x*1664525 + 1013904223
		p *= 1 + (float64(x%2001)-1000)/30000
		out[i] = p
	}
	return out
}

func TestRun_FlatPrices_NoTrades(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
	}
	res, err := Run(barsFrom(closes...), strategy.SMACross{Fast: 3, Slow: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 || res.OpenAtEnd {
		t.Fatalf("expected no trades and flat end, got %d trades open=%v", len(res.Trades), res.OpenAtEnd)
	}
	if res.Metrics.TotalReturnPct != 0 {
		t.Fatalf("totalReturnPct=%v", res.Metrics.TotalReturnPct)
	}
	if res.Metrics.Sharpe != 0 {
		t.Fatalf("sharpe=%v", res.Metrics.Sharpe)
	}
	if res.Metrics.ProfitFactor != 0 || res.Metrics.WinRatePct != 0 {
		t.Fatalf("trade metrics: %+v", res.Metrics)
	}
}

func TestRun_RisingPrices_OpenPositionNotClosed(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := barsFrom(closes...)
	res, err := Run(bars, strategy.Momentum{Period: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected empty trades, got %+v", res.Trades)
	}
	if !res.OpenAtEnd {
		t.Fatal("expected OpenAtEnd")
	}
	if res.Metrics.TotalReturnPct <= 0 {
		t.Fatalf("expected positive return, got %v", res.Metrics.TotalReturnPct)
	}
	// Entered at bar 5's close, held to bar 29.
	want := (closes[29]/closes[5] - 1) * 100
	if math.Abs(res.Metrics.TotalReturnPct-want) > 1e-9 {
		t.Fatalf("totalReturnPct=%v, want %v", res.Metrics.TotalReturnPct, want)
	}
	for i := 0; i < 5; i++ {
		if res.Returns[i] != 0 {
			t.Fatalf("return[%d]=%v before entry", i, res.Returns[i])
		}
	}
}

func TestRun_InsufficientData(t *testing.T) {
	res, err := Run(barsFrom(walk(10, 1)...), strategy.Breakout{Lookback: 3})
	if res != nil {
		t.Fatal("expected no result")
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	var ide *InsufficientDataError
	if !errors.As(err, &ide) || ide.Bars != 10 || ide.Min != MinBars {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestRun_InvalidParameter(t *testing.T) {
	res, err := Run(barsFrom(walk(40, 1)...), strategy.Momentum{Period: 0})
	if res != nil || !errors.Is(err, strategy.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter error, got res=%v err=%v", res, err)
	}
}

func TestRun_Invariants(t *testing.T) {
	configs := []strategy.Config{
		strategy.SMACross{Fast: 4, Slow: 11},
		strategy.RSIReversion{Period: 6, BuyLevel: 40, SellLevel: 60},
		strategy.MACD{Fast: 4, Slow: 10, Signal: 3},
		strategy.Breakout{Lookback: 8},
		strategy.Momentum{Period: 6},
	}
	for seed := uint32(1); seed <= 5; seed++ {
		bars := barsFrom(walk(200, seed)...)
		for _, cfg := range configs {
			res, err := Run(bars, cfg)
			if err != nil {
				t.Fatalf("%s: %v", cfg.Kind(), err)
			}
			if len(res.EquityCurve) != len(bars)-1 || len(res.Returns) != len(bars)-1 {
				t.Fatalf("%s: curve=%d returns=%d bars=%d", cfg.Kind(), len(res.EquityCurve), len(res.Returns), len(bars))
			}
			for i, tr := range res.Trades {
				if tr.ExitTime <= tr.EntryTime {
					t.Fatalf("%s: trade %d exit %d <= entry %d", cfg.Kind(), i, tr.ExitTime, tr.EntryTime)
				}
				if math.Abs(tr.ReturnPct-tr.PnL/tr.EntryPrice*100) > 1e-12 {
					t.Fatalf("%s: trade %d returnPct mismatch", cfg.Kind(), i)
				}
				if i > 0 && tr.ExitTime < res.Trades[i-1].ExitTime {
					t.Fatalf("%s: trades not ordered by exit", cfg.Kind())
				}
			}
			if res.Metrics.NumTrades != len(res.Trades) {
				t.Fatalf("%s: numTrades mismatch", cfg.Kind())
			}
			last := res.EquityCurve[len(res.EquityCurve)-1]
			if math.Abs(res.Metrics.TotalReturnPct-(last-1)*100) > 1e-9 {
				t.Fatalf("%s: total return mismatch", cfg.Kind())
			}
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	bars := barsFrom(walk(120, 9)...)
	cfg := strategy.MACD{Fast: 5, Slow: 12, Signal: 4}
	a, err := Run(bars, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(bars, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatal("results differ between identical runs")
	}
}

func TestRunWithOptions_IncludeSignals(t *testing.T) {
	bars := barsFrom(walk(40, 2)...)
	res, err := RunWithOptions(bars, strategy.Breakout{Lookback: 5}, Options{IncludeSignals: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Signals) != len(bars) {
		t.Fatalf("signals=%d, want %d", len(res.Signals), len(bars))
	}
	plain, _ := Run(bars, strategy.Breakout{Lookback: 5})
	if plain.Signals != nil {
		t.Fatal("signals should be omitted by default")
	}
}

func TestResult_JSON_InfiniteProfitFactor(t *testing.T) {
	bars := barsFrom(10, 11, 12, 13, 14)
	sigs := []model.Signal{model.SignalHold, model.SignalBuy, model.SignalHold, model.SignalSell, model.SignalHold}
	sim, err := Simulate(bars, sigs)
	if err != nil {
		t.Fatal(err)
	}
	res := &model.BacktestResult{EquityCurve: sim.Equity, Returns: sim.Returns, Trades: sim.Trades}
	res.Metrics.ProfitFactor = math.Inf(1)
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back model.BacktestResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsInf(back.Metrics.ProfitFactor, 1) {
		t.Fatalf("profit factor lost: %v", back.Metrics.ProfitFactor)
	}
}

func TestRun_SubDaySpanOverflowsCAGR_StillEncodes(t *testing.T) {
	bars := make([]model.PriceBar, 30)
	for i := range bars {
		c := 100 * (1 + float64(i*i))
		bars[i] = model.PriceBar{TS: int64(i) * 86_400, Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	res, err := Run(bars, strategy.Momentum{Period: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !math.IsInf(res.Metrics.CAGRPct, 1) {
		t.Fatalf("cagr=%v, want +Inf for a ~30x gain over minutes", res.Metrics.CAGRPct)
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back model.BacktestResult
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsInf(back.Metrics.CAGRPct, 1) {
		t.Fatalf("cagr lost in round trip: %v", back.Metrics.CAGRPct)
	}
	if back.Metrics.TotalReturnPct != res.Metrics.TotalReturnPct {
		t.Fatalf("totalReturnPct=%v, want %v", back.Metrics.TotalReturnPct, res.Metrics.TotalReturnPct)
	}
}
