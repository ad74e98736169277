package model

import (
	"context"
	"errors"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the backtest service from concrete storage
// implementations (SQLite, Redis).

// ErrNoBars is returned by a BarSource when the requested range is empty.
var ErrNoBars = errors.New("no bars for requested range")

// ErrRunNotFound is returned by a RunStore for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// BarSource supplies time-sorted, deduplicated daily bars.
type BarSource interface {
	// ReadBars returns bars for symbol with from <= ts <= to (epoch millis).
	// A zero to means "no upper bound".
	ReadBars(ctx context.Context, symbol string, from, to int64) ([]PriceBar, error)
}

// BarWriter imports bars for a symbol.
type BarWriter interface {
	WriteBars(ctx context.Context, symbol string, bars []PriceBar) error
}

// RunStore persists completed backtest summaries.
type RunStore interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	RunTrades(ctx context.Context, id string) ([]Trade, error)
}

// SymbolLister is implemented by bar sources that can enumerate symbols.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// ResultCache caches full backtest results by content key.
type ResultCache interface {
	// Get returns (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) (*BacktestResult, bool, error)
	Set(ctx context.Context, key string, res *BacktestResult) error
}
