package model

import (
	"encoding/json"
	"math"
	"time"
)

// Metrics holds the summary statistics of one backtest.
type Metrics struct {
	CAGRPct           float64   `json:"cagrPct"` // +Inf when a large gain compounds over a sub-day span
	Sharpe            float64   `json:"sharpe"`
	MaxDrawdownPct    float64   `json:"maxDrawdownPct"`
	WinRatePct        float64   `json:"winRatePct"`
	NumTrades         int       `json:"numTrades"`
	ProfitFactor      float64   `json:"profitFactor"` // +Inf when there are wins and no losses
	TotalReturnPct    float64   `json:"totalReturnPct"`
	DrawdownSeriesPct []float64 `json:"drawdownSeriesPct"`
}

// metricsJSON mirrors Metrics with the unbounded ratios as raw values so
// non-finite results can travel as "Infinity", "-Infinity" or "NaN".
type metricsJSON struct {
	CAGRPct           json.RawMessage `json:"cagrPct"`
	Sharpe            json.RawMessage `json:"sharpe"`
	MaxDrawdownPct    float64         `json:"maxDrawdownPct"`
	WinRatePct        float64         `json:"winRatePct"`
	NumTrades         int             `json:"numTrades"`
	ProfitFactor      json.RawMessage `json:"profitFactor"`
	TotalReturnPct    json.RawMessage `json:"totalReturnPct"`
	DrawdownSeriesPct []float64       `json:"drawdownSeriesPct"`
}

const (
	posInfLiteral = `"Infinity"`
	negInfLiteral = `"-Infinity"`
	nanLiteral    = `"NaN"`
)

func encodeFloat(v float64) (json.RawMessage, error) {
	switch {
	case math.IsInf(v, 1):
		return json.RawMessage(posInfLiteral), nil
	case math.IsInf(v, -1):
		return json.RawMessage(negInfLiteral), nil
	case math.IsNaN(v):
		return json.RawMessage(nanLiteral), nil
	}
	return json.Marshal(v)
}

func decodeFloat(raw json.RawMessage, dst *float64) error {
	switch string(raw) {
	case "", "null":
		*dst = 0
	case posInfLiteral:
		*dst = math.Inf(1)
	case negInfLiteral:
		*dst = math.Inf(-1)
	case nanLiteral:
		*dst = math.NaN()
	default:
		return json.Unmarshal(raw, dst)
	}
	return nil
}

// MarshalJSON encodes non-finite ratios (an all-winning profit factor, or a
// CAGR that overflows over a very short span) as strings.
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{
		MaxDrawdownPct:    m.MaxDrawdownPct,
		WinRatePct:        m.WinRatePct,
		NumTrades:         m.NumTrades,
		DrawdownSeriesPct: m.DrawdownSeriesPct,
	}
	var err error
	for _, f := range []struct {
		dst *json.RawMessage
		v   float64
	}{
		{&out.CAGRPct, m.CAGRPct},
		{&out.Sharpe, m.Sharpe},
		{&out.ProfitFactor, m.ProfitFactor},
		{&out.TotalReturnPct, m.TotalReturnPct},
	} {
		if *f.dst, err = encodeFloat(f.v); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both numeric and string-encoded non-finite values.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw metricsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metrics{
		MaxDrawdownPct:    raw.MaxDrawdownPct,
		WinRatePct:        raw.WinRatePct,
		NumTrades:         raw.NumTrades,
		DrawdownSeriesPct: raw.DrawdownSeriesPct,
	}
	for _, f := range []struct {
		raw json.RawMessage
		dst *float64
	}{
		{raw.CAGRPct, &m.CAGRPct},
		{raw.Sharpe, &m.Sharpe},
		{raw.ProfitFactor, &m.ProfitFactor},
		{raw.TotalReturnPct, &m.TotalReturnPct},
	} {
		if err := decodeFloat(f.raw, f.dst); err != nil {
			return err
		}
	}
	return nil
}

// BacktestResult is the output of one pipeline run.
// len(EquityCurve) == len(Returns) == len(bars)-1.
type BacktestResult struct {
	EquityCurve []float64 `json:"equityCurve"`
	Returns     []float64 `json:"returns"`
	Trades      []Trade   `json:"trades"`
	Metrics     Metrics   `json:"metrics"`
	Signals     []Signal  `json:"signals,omitempty"`
	// OpenAtEnd reports a long position still held after the last bar. It is
	// reflected in the equity curve but not in Trades.
	OpenAtEnd bool `json:"openAtEnd"`
}

// FinalEquity returns the last equity multiplier, or 1 for an empty curve.
func (r *BacktestResult) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return 1
	}
	return r.EquityCurve[len(r.EquityCurve)-1]
}

// RunRecord is the persisted summary of a completed backtest.
type RunRecord struct {
	ID             string             `json:"id"`
	Symbol         string             `json:"symbol"`
	Kind           string             `json:"kind"`
	Params         map[string]float64 `json:"params"`
	Bars           int                `json:"bars"`
	FromTS         int64              `json:"from"`
	ToTS           int64              `json:"to"`
	NumTrades      int                `json:"numTrades"`
	TotalReturnPct float64            `json:"totalReturnPct"`
	Sharpe         float64            `json:"sharpe"`
	MaxDrawdownPct float64            `json:"maxDrawdownPct"`
	CreatedAt      time.Time          `json:"createdAt"`

	// Trades is the run's trade journal; it is stored alongside the summary
	// and served separately.
	Trades []Trade `json:"-"`
}
