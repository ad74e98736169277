package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec names one chart overlay, e.g. {Type: "EMA", Period: 9}.
type Spec struct {
	Type   string `json:"type"` // "SMA", "EMA", "SMMA", "RSI", "ROC", "HIGHEST", "LOWEST"
	Period int    `json:"period"`
}

// Key returns the overlay's canonical name, "TYPE:PERIOD".
func (s Spec) Key() string {
	return s.Type + ":" + strconv.Itoa(s.Period)
}

// DefaultSpecs is the overlay set used when none is requested.
var DefaultSpecs = []Spec{
	{Type: "SMA", Period: 20},
	{Type: "SMA", Period: 50},
	{Type: "EMA", Period: 9},
	{Type: "EMA", Period: 21},
	{Type: "RSI", Period: DefaultRSIPeriod},
}

var overlayFuncs = map[string]func([]float64, int) Series{
	"SMA":     SMA,
	"EMA":     EMA,
	"SMMA":    SMMA,
	"RSI":     RSI,
	"ROC":     ROC,
	"HIGHEST": Highest,
	"LOWEST":  Lowest,
}

// ParseSpecs parses "TYPE:PERIOD,..." (case-insensitive type). An empty
// string yields DefaultSpecs.
func ParseSpecs(s string) ([]Spec, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultSpecs, nil
	}
	var specs []Spec
	for _, part := range strings.Split(s, ",") {
		tokens := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("indicator spec %q: want TYPE:PERIOD", part)
		}
		period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("indicator spec %q: bad period: %w", part, err)
		}
		specs = append(specs, Spec{
			Type:   strings.ToUpper(strings.TrimSpace(tokens[0])),
			Period: period,
		})
	}
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// ValidateSpecs rejects unknown types, out-of-range periods and duplicates.
func ValidateSpecs(specs []Spec) error {
	seen := make(map[string]bool, len(specs))
	for _, sp := range specs {
		if _, ok := overlayFuncs[sp.Type]; !ok {
			return fmt.Errorf("unknown indicator type %q", sp.Type)
		}
		if sp.Period <= 0 || sp.Period > MaxPeriod {
			return fmt.Errorf("invalid period=%d for %s (want 1..%d)", sp.Period, sp.Type, MaxPeriod)
		}
		if seen[sp.Key()] {
			return fmt.Errorf("duplicate indicator %s", sp.Key())
		}
		seen[sp.Key()] = true
	}
	return nil
}

// Overlay computes every spec over values, keyed by Spec.Key.
// Specs are assumed valid; unknown types are skipped.
func Overlay(values []float64, specs []Spec) map[string]Series {
	out := make(map[string]Series, len(specs))
	for _, sp := range specs {
		fn, ok := overlayFuncs[sp.Type]
		if !ok {
			continue
		}
		out[sp.Key()] = fn(values, sp.Period)
	}
	return out
}
