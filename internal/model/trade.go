package model

// Trade is a closed long round trip. It is created only when the
// position is exited; times are the bar timestamps (epoch millis) of the
// entry and exit fills.
type Trade struct {
	EntryTime  int64   `json:"entryTime"`
	ExitTime   int64   `json:"exitTime"`
	EntryPrice float64 `json:"entryPrice"`
	ExitPrice  float64 `json:"exitPrice"`
	PnL        float64 `json:"pnl"`
	ReturnPct  float64 `json:"returnPct"`
}

// NewTrade builds a trade for one unit bought at entry and sold at exit.
func NewTrade(entryTime, exitTime int64, entry, exit float64) Trade {
	pnl := exit - entry
	return Trade{
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		EntryPrice: entry,
		ExitPrice:  exit,
		PnL:        pnl,
		ReturnPct:  pnl / entry * 100,
	}
}

// Win reports whether the trade closed with a positive return.
func (t *Trade) Win() bool {
	return t.ReturnPct > 0
}
