// Package backtest runs the full evaluation pipeline for one strategy on one
// instrument: bars → indicators → signals → simulated equity and trades →
// metrics.
//
// Run is synchronous, holds no shared state and never mutates its input, so
// independent runs may execute in parallel.
package backtest

import (
	"strategy-backtester/internal/model"
	"strategy-backtester/internal/perf"
	"strategy-backtester/internal/strategy"
)

// Options tweaks what Run returns.
type Options struct {
	// IncludeSignals attaches the per-bar signal sequence to the result.
	IncludeSignals bool
}

// Run evaluates cfg against bars. It fails with *InsufficientDataError when
// fewer than MinBars bars are given and with *strategy.InvalidParameterError
// for degenerate params; no partial result is returned on error.
func Run(bars []model.PriceBar, cfg strategy.Config) (*model.BacktestResult, error) {
	return RunWithOptions(bars, cfg, Options{})
}

// RunWithOptions is Run with output options.
func RunWithOptions(bars []model.PriceBar, cfg strategy.Config, opts Options) (*model.BacktestResult, error) {
	if len(bars) < MinBars {
		return nil, &InsufficientDataError{Bars: len(bars), Min: MinBars}
	}

	signals, err := strategy.Generate(bars, cfg)
	if err != nil {
		return nil, err
	}

	sim, err := Simulate(bars, signals)
	if err != nil {
		return nil, err
	}

	res := &model.BacktestResult{
		EquityCurve: sim.Equity,
		Returns:     sim.Returns,
		Trades:      sim.Trades,
		Metrics:     perf.Calculate(sim.Equity, sim.Returns, sim.Trades, bars),
		OpenAtEnd:   sim.Final == Long,
	}
	if opts.IncludeSignals {
		res.Signals = signals
	}
	return res, nil
}
