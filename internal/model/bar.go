package model

import (
	"fmt"
	"math"
)

// PriceBar is one daily OHLCV sample. TS is epoch milliseconds.
// Prices are float64; bars arrive from vendors already adjusted.
type PriceBar struct {
	TS     int64   `json:"timestamp"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Validate checks the bar for logical OHLC consistency.
func (b *PriceBar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bar %d: non-finite value", b.TS)
		}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar %d: prices must be positive", b.TS)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %d: negative volume", b.TS)
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %d: high %.4f below low %.4f", b.TS, b.High, b.Low)
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("bar %d: high below open/close", b.TS)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("bar %d: low above open/close", b.TS)
	}
	return nil
}

// Closes extracts the close-price sequence from bars.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}
