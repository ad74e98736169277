package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategy-backtester/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func bar(ts int64, c float64) model.PriceBar {
	return model.PriceBar{TS: ts, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
}

func TestStore_WriteReadBars(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	// Written out of order; read back sorted.
	in := []model.PriceBar{bar(3000, 103), bar(1000, 101), bar(2000, 102)}
	if err := s.WriteBars(ctx, "AAPL", in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteBars(ctx, "MSFT", []model.PriceBar{bar(1000, 50)}); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.ReadBars(ctx, "AAPL", 0, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[0].TS != 1000 || got[2].TS != 3000 || got[1].Close != 102 {
		t.Fatalf("unexpected bars: %+v", got)
	}

	got, err = s.ReadBars(ctx, "AAPL", 1500, 2500)
	if err != nil {
		t.Fatalf("read range: %v", err)
	}
	if len(got) != 1 || got[0].TS != 2000 {
		t.Fatalf("range read: %+v", got)
	}

	syms, err := s.Symbols(ctx)
	if err != nil || len(syms) != 2 || syms[0] != "AAPL" {
		t.Fatalf("symbols=%v err=%v", syms, err)
	}
}

func TestStore_WriteBars_Upsert(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	if err := s.WriteBars(ctx, "X", []model.PriceBar{bar(1000, 10)}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBars(ctx, "X", []model.PriceBar{bar(1000, 12)}); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadBars(ctx, "X", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Close != 12 {
		t.Fatalf("upsert failed: %+v", got)
	}
}

func TestStore_ReadBars_Empty(t *testing.T) {
	s := openTest(t)
	_, err := s.ReadBars(context.Background(), "NOPE", 0, 0)
	if !errors.Is(err, model.ErrNoBars) {
		t.Fatalf("expected ErrNoBars, got %v", err)
	}
}

func TestStore_Runs(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		rec := model.RunRecord{
			ID:             id,
			Symbol:         "AAPL",
			Kind:           "macd",
			Params:         map[string]float64{"fast": 12, "slow": 26, "signal": 9},
			Bars:           250,
			NumTrades:      i,
			TotalReturnPct: float64(i) * 1.5,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveRun(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Params["slow"] != 26 || runs[0].TotalReturnPct != 3 {
		t.Fatalf("fields lost: %+v", runs[0])
	}
	if !runs[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at=%v", runs[0].CreatedAt)
	}
}

func TestStore_RunTrades(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rec := model.RunRecord{
		ID:     "run-1",
		Symbol: "AAPL",
		Kind:   "breakout",
		Params: map[string]float64{"lookback": 20},
		Trades: []model.Trade{
			model.NewTrade(1000, 2000, 100, 110),
			model.NewTrade(3000, 4000, 110, 99),
		},
	}
	if err := s.SaveRun(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	trades, err := s.RunTrades(ctx, "run-1")
	if err != nil {
		t.Fatalf("trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades", len(trades))
	}
	if trades[0] != rec.Trades[0] || trades[1] != rec.Trades[1] {
		t.Fatalf("trades differ: %+v", trades)
	}

	if _, err := s.RunTrades(ctx, "missing"); !errors.Is(err, model.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	// A run without trades has an empty, non-nil journal.
	if err := s.SaveRun(ctx, model.RunRecord{ID: "run-2", Symbol: "AAPL", Kind: "macd", Params: map[string]float64{}}); err != nil {
		t.Fatal(err)
	}
	empty, err := s.RunTrades(ctx, "run-2")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty journal: %v %v", empty, err)
	}
}
