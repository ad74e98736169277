package model

import "fmt"

// Signal is the discrete per-bar trading decision.
type Signal int8

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalHold:
		return "hold"
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	default:
		return "unknown"
	}
}

// MarshalText encodes the signal as "hold", "buy" or "sell".
func (s Signal) MarshalText() ([]byte, error) {
	switch s {
	case SignalHold, SignalBuy, SignalSell:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid signal %d", int8(s))
}

// UnmarshalText parses "hold", "buy" or "sell".
func (s *Signal) UnmarshalText(text []byte) error {
	switch string(text) {
	case "hold":
		*s = SignalHold
	case "buy":
		*s = SignalBuy
	case "sell":
		*s = SignalSell
	default:
		return fmt.Errorf("invalid signal %q", text)
	}
	return nil
}
