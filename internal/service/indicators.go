package service

import (
	"context"
	"fmt"

	"strategy-backtester/internal/indicator"
	"strategy-backtester/internal/model"
)

// IndicatorRequest asks for chart overlays over a symbol's closes or
// inline bars.
type IndicatorRequest struct {
	Symbol string           `json:"symbol,omitempty"`
	From   int64            `json:"from,omitempty"`
	To     int64            `json:"to,omitempty"`
	Bars   []model.PriceBar `json:"bars,omitempty"`
	Specs  string           `json:"specs,omitempty"` // "SMA:20,EMA:9"; empty uses defaults
}

// IndicatorResponse holds overlays aligned with Timestamps.
type IndicatorResponse struct {
	Symbol     string                      `json:"symbol"`
	Timestamps []int64                     `json:"timestamps"`
	Series     map[string]indicator.Series `json:"series"`
}

// Indicators computes overlays for charting next to a backtest.
func (s *Service) Indicators(ctx context.Context, req IndicatorRequest) (*IndicatorResponse, error) {
	specs, err := indicator.ParseSpecs(req.Specs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	bars, err := s.loadBars(ctx, Request{Symbol: req.Symbol, From: req.From, To: req.To, Bars: req.Bars})
	if err != nil {
		return nil, err
	}

	ts := make([]int64, len(bars))
	for i := range bars {
		ts[i] = bars[i].TS
	}
	symbol := req.Symbol
	if len(req.Bars) > 0 && symbol == "" {
		symbol = inlineSymbol
	}
	return &IndicatorResponse{
		Symbol:     symbol,
		Timestamps: ts,
		Series:     indicator.Overlay(model.Closes(bars), specs),
	}, nil
}
