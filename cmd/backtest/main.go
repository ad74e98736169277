// cmd/backtest runs one strategy over historical daily bars and prints the
// result as JSON. Bars come from the SQLite store (--symbol) or a JSON file
// holding an array of bars (--bars).
//
// Usage:
//
//	go run ./cmd/backtest --symbol=AAPL --kind=sma_cross --params=fast=10,slow=30
//	go run ./cmd/backtest --bars=testdata/aapl.json --kind=rsi_reversion --signals
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"strategy-backtester/internal/backtest"
	"strategy-backtester/internal/logger"
	"strategy-backtester/internal/model"
	"strategy-backtester/internal/service"
	sqlitestore "strategy-backtester/internal/store/sqlite"
	"strategy-backtester/internal/strategy"
)

func main() {
	dbPath := flag.String("db", "data/bars.db", "Path to SQLite database")
	symbol := flag.String("symbol", "", "Symbol to load from the database")
	fromStr := flag.String("from", "", "Start date (YYYY-MM-DD or epoch millis)")
	toStr := flag.String("to", "", "End date (YYYY-MM-DD or epoch millis)")
	barsFile := flag.String("bars", "", "JSON file with an array of bars (overrides --symbol)")
	importTo := flag.String("import", "", "Store the --bars file under this symbol before running")
	kind := flag.String("kind", string(strategy.KindSMACross), "Strategy kind: "+kindList())
	paramStr := flag.String("params", "", "Strategy params: name=value,... (defaults apply to omitted names)")
	withSignals := flag.Bool("signals", false, "Include the per-bar signal sequence")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger.InitWriter(os.Stderr, "backtest-cli", logger.ParseLevel(*logLevel))

	if err := run(*dbPath, *symbol, *fromStr, *toStr, *barsFile, *importTo, *kind, *paramStr, *withSignals); err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(dbPath, symbol, fromStr, toStr, barsFile, importTo, kind, paramStr string, withSignals bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	params, err := parseParams(paramStr)
	if err != nil {
		return err
	}
	from, err := parseDate(fromStr)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseDate(toStr)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	req := service.Request{
		Symbol:         symbol,
		From:           from,
		To:             to,
		Strategy:       service.StrategySpec{Kind: kind, Params: params},
		IncludeSignals: withSignals,
	}

	var opts service.Options
	if barsFile != "" {
		bars, err := readBarsFile(barsFile)
		if err != nil {
			return err
		}
		req.Bars = bars
	}

	// The database is only needed for symbol loads or imports.
	if req.Bars == nil || importTo != "" {
		store, err := sqlitestore.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Bars, opts.Writer, opts.Runs = store, store, store
	}

	svc := service.New(opts)
	if importTo != "" {
		if err := svc.ImportBars(ctx, importTo, req.Bars); err != nil {
			return err
		}
		slog.Info("imported bars", "symbol", importTo, "count", len(req.Bars))
		if req.Symbol == "" {
			req.Symbol = importTo
		}
	}

	resp, err := svc.Backtest(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// kindList renders every kind with its parameter names for --kind help,
// e.g. "sma_cross(fast,slow)".
func kindList() string {
	names := make([]string, len(strategy.Kinds))
	for i, k := range strategy.Kinds {
		names[i] = fmt.Sprintf("%s(%s)", k, strings.Join(strategy.ParamNames(k), ","))
	}
	return strings.Join(names, ", ")
}

// parseParams parses "fast=10,slow=30".
func parseParams(s string) (map[string]float64, error) {
	params := map[string]float64{}
	if strings.TrimSpace(s) == "" {
		return params, nil
	}
	for _, part := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("--params: %q is not name=value", part)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("--params: %s: %w", name, err)
		}
		params[strings.TrimSpace(name)] = v
	}
	return params, nil
}

// parseDate accepts YYYY-MM-DD (UTC midnight) or epoch milliseconds.
// Empty means unbounded (0).
func parseDate(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("want YYYY-MM-DD or epoch millis, got %q", s)
	}
	return t.UnixMilli(), nil
}

func readBarsFile(path string) ([]model.PriceBar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	var bars []model.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("decode bars %s: %w", path, err)
	}
	return bars, nil
}

// exitCode separates caller mistakes (2) from runtime failures (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, strategy.ErrInvalidParameter),
		errors.Is(err, backtest.ErrInsufficientData),
		errors.Is(err, service.ErrBadRequest):
		return 2
	default:
		return 1
	}
}
