// Package service wraps the pure backtest pipeline with everything a running
// deployment needs: bar loading, input validation, the result cache, run
// history and instrumentation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"strategy-backtester/internal/backtest"
	"strategy-backtester/internal/logger"
	"strategy-backtester/internal/metrics"
	"strategy-backtester/internal/model"
	"strategy-backtester/internal/notification"
	"strategy-backtester/internal/strategy"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrBadRequest marks caller mistakes that are not strategy or data-length
// errors: malformed bars, missing bar source, oversized requests.
var ErrBadRequest = errors.New("bad request")

const (
	defaultMaxBars = 20000
	defaultWorkers = 4
	inlineSymbol   = "inline"
)

// StrategySpec is the wire form of a strategy: a kind plus optional params.
type StrategySpec struct {
	Kind   string             `json:"kind"`
	Params map[string]float64 `json:"params,omitempty"`
}

// Request asks for one backtest. Bars are taken inline when present,
// otherwise loaded by Symbol within [From, To] (epoch millis, To=0 unbounded).
type Request struct {
	Symbol         string           `json:"symbol,omitempty"`
	From           int64            `json:"from,omitempty"`
	To             int64            `json:"to,omitempty"`
	Bars           []model.PriceBar `json:"bars,omitempty"`
	Strategy       StrategySpec     `json:"strategy"`
	IncludeSignals bool             `json:"includeSignals,omitempty"`
}

// Response is a completed backtest.
type Response struct {
	RunID  string                `json:"runId"`
	Symbol string                `json:"symbol"`
	Kind   string                `json:"kind"`
	Params map[string]float64    `json:"params"`
	Cached bool                  `json:"cached"`
	Result *model.BacktestResult `json:"result"`
}

// Options wires a Service. Bars, Writer, Runs, Cache and Notifier may be nil.
type Options struct {
	Bars     model.BarSource
	Writer   model.BarWriter
	Runs     model.RunStore
	Cache    model.ResultCache
	Metrics  *metrics.Metrics
	Notifier notification.Notifier

	MaxBars int
	Workers int
}

// Service runs backtests. It is safe for concurrent use.
type Service struct {
	bars    model.BarSource
	writer  model.BarWriter
	runs    model.RunStore
	cache   model.ResultCache
	m       *metrics.Metrics
	notify  notification.Notifier
	maxBars int
	workers int
	lat     *latencyWindow
}

// New creates a Service. A nil Metrics gets a private registry.
func New(opts Options) *Service {
	s := &Service{
		bars:    opts.Bars,
		writer:  opts.Writer,
		runs:    opts.Runs,
		cache:   opts.Cache,
		m:       opts.Metrics,
		notify:  opts.Notifier,
		maxBars: opts.MaxBars,
		workers: opts.Workers,
		lat:     newLatencyWindow(1024),
	}
	if s.m == nil {
		s.m = metrics.NewMetrics(prometheus.NewRegistry())
	}
	if s.maxBars <= 0 {
		s.maxBars = defaultMaxBars
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	return s
}

// Backtest resolves bars, consults the cache, runs the pipeline and records
// the run. Errors from the pipeline are returned unwrapped so callers can
// match *backtest.InsufficientDataError and *strategy.InvalidParameterError.
func (s *Service) Backtest(ctx context.Context, req Request) (*Response, error) {
	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)

	cfg, err := strategy.Parse(req.Strategy.Kind, req.Strategy.Params)
	if err != nil {
		s.m.RunsTotal.WithLabelValues(kindLabel(req.Strategy.Kind), "invalid").Inc()
		return nil, err
	}
	kind := string(cfg.Kind())

	bars, err := s.loadBars(ctx, req)
	if err != nil {
		s.m.RunsTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}

	symbol := req.Symbol
	if len(req.Bars) > 0 && symbol == "" {
		symbol = inlineSymbol
	}
	resp := &Response{
		RunID:  runID,
		Symbol: symbol,
		Kind:   kind,
		Params: cfg.Params(),
	}

	key := CacheKey(bars, cfg, req.IncludeSignals)
	if res, ok := s.cacheGet(ctx, key); ok {
		s.m.RunsTotal.WithLabelValues(kind, "cached").Inc()
		resp.Cached = true
		resp.Result = res
		return resp, nil
	}

	slog.Info("backtest started", append(logger.Attrs(ctx),
		"symbol", symbol, "kind", kind, "bars", len(bars))...)

	start := time.Now()
	res, err := backtest.RunWithOptions(bars, cfg, backtest.Options{IncludeSignals: req.IncludeSignals})
	elapsed := time.Since(start)
	if err != nil {
		s.m.RunsTotal.WithLabelValues(kind, "error").Inc()
		slog.Warn("backtest failed", append(logger.Attrs(ctx), "kind", kind, "error", err)...)
		return nil, err
	}

	s.m.RunsTotal.WithLabelValues(kind, "ok").Inc()
	s.m.RunDur.WithLabelValues(kind).Observe(elapsed.Seconds())
	s.lat.record(float64(elapsed.Microseconds()) / 1000)
	s.m.BarsProcessed.Add(float64(len(bars)))
	s.m.TradesTotal.WithLabelValues(kind).Add(float64(len(res.Trades)))
	if res.OpenAtEnd {
		s.m.OpenAtEnd.WithLabelValues(kind).Inc()
	}

	slog.Info("backtest finished", append(logger.Attrs(ctx),
		"kind", kind,
		"bars", len(bars),
		"trades", len(res.Trades),
		"total_return_pct", res.Metrics.TotalReturnPct,
		"final_equity", res.FinalEquity(),
		"duration_ms", float64(elapsed.Microseconds())/1000,
	)...)

	s.cacheSet(ctx, key, res)
	s.saveRun(ctx, resp, bars, res)

	resp.Result = res
	return resp, nil
}

// loadBars returns validated inline bars or reads them from the bar source.
func (s *Service) loadBars(ctx context.Context, req Request) ([]model.PriceBar, error) {
	var bars []model.PriceBar
	switch {
	case len(req.Bars) > 0:
		if err := ValidateBars(req.Bars); err != nil {
			return nil, err
		}
		bars = req.Bars
	case req.Symbol != "":
		if s.bars == nil {
			return nil, fmt.Errorf("%w: no bar source configured", ErrBadRequest)
		}
		start := time.Now()
		loaded, err := s.bars.ReadBars(ctx, req.Symbol, req.From, req.To)
		s.m.SQLiteQueryDur.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		bars = loaded
	default:
		return nil, fmt.Errorf("%w: either bars or symbol is required", ErrBadRequest)
	}

	if len(bars) > s.maxBars {
		return nil, fmt.Errorf("%w: %d bars exceeds limit of %d", ErrBadRequest, len(bars), s.maxBars)
	}
	return bars, nil
}

// ValidateBars checks OHLC consistency and strictly increasing timestamps.
func ValidateBars(bars []model.PriceBar) error {
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if i > 0 && bars[i].TS <= bars[i-1].TS {
			return fmt.Errorf("%w: bar %d: timestamps must be strictly increasing", ErrBadRequest, i)
		}
	}
	return nil
}

func (s *Service) cacheGet(ctx context.Context, key string) (*model.BacktestResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	res, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.m.CacheErrors.Inc()
		slog.Warn("cache read failed", append(logger.Attrs(ctx), "error", err)...)
		return nil, false
	}
	if !ok {
		s.m.CacheMisses.Inc()
		return nil, false
	}
	s.m.CacheHits.Inc()
	return res, true
}

func (s *Service) cacheSet(ctx context.Context, key string, res *model.BacktestResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res); err != nil {
		s.m.CacheErrors.Inc()
		slog.Warn("cache write failed", append(logger.Attrs(ctx), "error", err)...)
	}
}

func (s *Service) saveRun(ctx context.Context, resp *Response, bars []model.PriceBar, res *model.BacktestResult) {
	if s.runs == nil {
		return
	}
	rec := model.RunRecord{
		ID:             resp.RunID,
		Symbol:         resp.Symbol,
		Kind:           resp.Kind,
		Params:         resp.Params,
		Bars:           len(bars),
		FromTS:         bars[0].TS,
		ToTS:           bars[len(bars)-1].TS,
		NumTrades:      res.Metrics.NumTrades,
		TotalReturnPct: res.Metrics.TotalReturnPct,
		Sharpe:         res.Metrics.Sharpe,
		MaxDrawdownPct: res.Metrics.MaxDrawdownPct,
		CreatedAt:      time.Now().UTC(),
		Trades:         res.Trades,
	}
	if err := s.runs.SaveRun(ctx, rec); err != nil {
		slog.Warn("run history write failed", append(logger.Attrs(ctx), "error", err)...)
	}
}

// Runs returns the most recent run summaries.
func (s *Service) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if s.runs == nil {
		return []model.RunRecord{}, nil
	}
	return s.runs.ListRuns(ctx, limit)
}

// RunTrades returns the trade journal of a recorded run.
func (s *Service) RunTrades(ctx context.Context, id string) ([]model.Trade, error) {
	if s.runs == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, id)
	}
	return s.runs.RunTrades(ctx, id)
}

// Symbols lists symbols with stored bars, when the bar source can tell.
func (s *Service) Symbols(ctx context.Context) ([]string, error) {
	lister, ok := s.bars.(model.SymbolLister)
	if !ok {
		return []string{}, nil
	}
	syms, err := lister.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if syms == nil {
		syms = []string{}
	}
	return syms, nil
}

// ImportBars validates bars and writes them for symbol.
func (s *Service) ImportBars(ctx context.Context, symbol string, bars []model.PriceBar) error {
	if s.writer == nil {
		return fmt.Errorf("%w: no bar store configured", ErrBadRequest)
	}
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrBadRequest)
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars given", ErrBadRequest)
	}
	if err := ValidateBars(bars); err != nil {
		return err
	}
	if err := s.writer.WriteBars(ctx, symbol, bars); err != nil {
		return err
	}
	slog.Info("bars imported", "symbol", symbol, "count", len(bars))
	return nil
}

// kindLabel bounds metric label cardinality to the known kinds.
func kindLabel(kind string) string {
	for _, k := range strategy.Kinds {
		if string(k) == kind {
			return kind
		}
	}
	return "unknown"
}

// StrategyInfo describes one strategy kind for discovery.
type StrategyInfo struct {
	Kind     string             `json:"kind"`
	Defaults map[string]float64 `json:"defaults"`
}

// Strategies lists every kind with its default params.
func Strategies() []StrategyInfo {
	defaults := strategy.Defaults()
	out := make([]StrategyInfo, 0, len(strategy.Kinds))
	for _, k := range strategy.Kinds {
		out = append(out, StrategyInfo{Kind: string(k), Defaults: defaults[k]})
	}
	return out
}
