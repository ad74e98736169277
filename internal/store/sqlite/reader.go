package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"strategy-backtester/internal/model"
)

// ReadBars returns bars for symbol with from <= ts <= to, ordered by
// timestamp ascending. to == 0 means no upper bound. An empty result is
// reported as model.ErrNoBars.
func (s *Store) ReadBars(ctx context.Context, symbol string, from, to int64) ([]model.PriceBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND ts >= ? AND (? = 0 OR ts <= ?)
		ORDER BY ts ASC
	`, symbol, from, to, to)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.TS, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite iterate bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrNoBars, symbol)
	}
	return bars, nil
}

// Symbols lists the symbols that have stored bars.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("sqlite scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ListRuns returns up to limit most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, kind, params, bars, from_ts, to_ts,
			num_trades, total_return_pct, sharpe, max_drawdown_pct, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.RunRecord{}
	for rows.Next() {
		var (
			r         model.RunRecord
			params    string
			createdMs int64
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Kind, &params, &r.Bars, &r.FromTS, &r.ToTS,
			&r.NumTrades, &r.TotalReturnPct, &r.Sharpe, &r.MaxDrawdownPct, &createdMs); err != nil {
			return nil, fmt.Errorf("sqlite scan runs: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("unmarshal run params: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunTrades returns the trade journal of run id in execution order. An
// unknown id yields model.ErrRunNotFound.
func (s *Store) RunTrades(ctx context.Context, id string) ([]model.Trade, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM backtest_runs WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("sqlite query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_time, exit_time, entry_price, exit_price, pnl, return_pct
		FROM backtest_trades
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.EntryTime, &t.ExitTime, &t.EntryPrice, &t.ExitPrice, &t.PnL, &t.ReturnPct); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
