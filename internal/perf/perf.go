// Package perf derives summary statistics from a simulated equity curve,
// its per-bar returns, and the closed trades.
package perf

import (
	"math"

	"strategy-backtester/internal/model"
)

const (
	// TradingDaysPerYear annualizes the daily Sharpe ratio.
	TradingDaysPerYear = 252

	msPerYear = 365 * 24 * 3600 * 1000
	minYears  = 1.0 / 365
)

// Calculate computes all metrics. bars supplies the elapsed time for CAGR.
func Calculate(equity, returns []float64, trades []model.Trade, bars []model.PriceBar) model.Metrics {
	last := 1.0
	if len(equity) > 0 {
		last = equity[len(equity)-1]
	}
	dd, maxDD := Drawdowns(equity)
	return model.Metrics{
		CAGRPct:           CAGR(last, Years(bars)),
		Sharpe:            Sharpe(returns),
		MaxDrawdownPct:    maxDD,
		WinRatePct:        WinRate(trades),
		NumTrades:         len(trades),
		ProfitFactor:      ProfitFactor(trades),
		TotalReturnPct:    (last - 1) * 100,
		DrawdownSeriesPct: dd,
	}
}

// Years returns the span between the first and last bar in years, floored
// at one day.
func Years(bars []model.PriceBar) float64 {
	if len(bars) < 2 {
		return minYears
	}
	elapsed := float64(bars[len(bars)-1].TS - bars[0].TS)
	return math.Max(minYears, elapsed/msPerYear)
}

// CAGR returns the compound annual growth rate in percent for a final
// equity multiplier. A wiped-out account (equity <= 0) reports -100.
func CAGR(lastEquity, years float64) float64 {
	if lastEquity <= 0 {
		return -100
	}
	return (math.Pow(lastEquity, 1/years) - 1) * 100
}

// Sharpe returns the annualized Sharpe ratio of per-bar returns using the
// population standard deviation. Zero variance yields 0.
func Sharpe(returns []float64) float64 {
	n := float64(len(returns))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / n
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / n)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean / sd * math.Sqrt(TradingDaysPerYear)
}

// Drawdowns returns the per-point drawdown from the running peak, in
// percent, and its maximum. Points before a finite positive peak is seen
// have zero drawdown.
func Drawdowns(equity []float64) ([]float64, float64) {
	series := make([]float64, len(equity))
	peak := math.Inf(-1)
	maxDD := 0.0
	for i, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 || math.IsInf(peak, 0) || math.IsNaN(peak) {
			continue
		}
		dd := (peak - e) / peak * 100
		series[i] = dd
		if dd > maxDD {
			maxDD = dd
		}
	}
	return series, maxDD
}

// WinRate returns the percentage of trades with a positive return.
func WinRate(trades []model.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for i := range trades {
		if trades[i].Win() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// ProfitFactor returns gross profit over gross loss. Without losses it is
// +Inf if anything was won and 0 otherwise.
func ProfitFactor(trades []model.Trade) float64 {
	var gross, loss float64
	for _, t := range trades {
		switch {
		case t.PnL > 0:
			gross += t.PnL
		case t.PnL < 0:
			loss -= t.PnL
		}
	}
	if loss == 0 {
		if gross > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gross / loss
}
