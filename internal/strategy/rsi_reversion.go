package strategy

import "strategy-backtester/internal/indicator"

// RSIReversion buys while RSI is below BuyLevel (oversold) and sells while
// it is above SellLevel (overbought).
type RSIReversion struct {
	Period    int     `json:"period"`
	BuyLevel  float64 `json:"buyLevel"`
	SellLevel float64 `json:"sellLevel"`
}

func (c RSIReversion) Kind() Kind { return KindRSIReversion }

func (c RSIReversion) Params() map[string]float64 {
	return map[string]float64{
		"period":    float64(c.Period),
		"buyLevel":  c.BuyLevel,
		"sellLevel": c.SellLevel,
	}
}

func (c RSIReversion) Validate() error {
	if err := positive(KindRSIReversion, "period", c.Period); err != nil {
		return err
	}
	if c.BuyLevel < 0 || c.BuyLevel > 100 {
		return invalid(KindRSIReversion, "buyLevel", "must be within [0,100]")
	}
	if c.SellLevel < 0 || c.SellLevel > 100 {
		return invalid(KindRSIReversion, "sellLevel", "must be within [0,100]")
	}
	if c.BuyLevel >= c.SellLevel {
		return invalid(KindRSIReversion, "buyLevel", "must be below sellLevel")
	}
	return nil
}

func (c RSIReversion) signals(closes []float64) []Signal {
	rsi := indicator.RSI(closes, c.Period)
	out := make([]Signal, len(closes))
	for i := 1; i < len(closes); i++ {
		v, ok := rsi.At(i)
		if !ok {
			continue
		}
		switch {
		case v < c.BuyLevel:
			out[i] = Buy
		case v > c.SellLevel:
			out[i] = Sell
		}
	}
	return out
}
