// Package strategy maps a price-bar sequence and a strategy definition to a
// per-bar trading signal.
//
// A Config is a closed set of variants, one per strategy kind, each carrying
// its own typed parameters. Parse converts the wire-level {kind, params}
// form into a Config, applying documented defaults.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"strategy-backtester/internal/indicator"
)

// Kind identifies a strategy family.
type Kind string

const (
	KindSMACross     Kind = "sma_cross"
	KindRSIReversion Kind = "rsi_reversion"
	KindMACD         Kind = "macd"
	KindBreakout     Kind = "breakout"
	KindMomentum     Kind = "momentum"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindSMACross, KindRSIReversion, KindMACD, KindBreakout, KindMomentum}

// ErrInvalidParameter is matched by every *InvalidParameterError.
var ErrInvalidParameter = errors.New("invalid strategy parameter")

// InvalidParameterError reports strategy params that would produce
// nonsensical windows.
type InvalidParameterError struct {
	Kind   Kind
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("strategy %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("strategy %s: param %q %s", e.Kind, e.Param, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func invalid(kind Kind, param, format string, args ...any) error {
	return &InvalidParameterError{Kind: kind, Param: param, Reason: fmt.Sprintf(format, args...)}
}

// Config is one fully-typed strategy definition. The set of implementations
// is closed: SMACross, RSIReversion, MACD, Breakout, Momentum.
type Config interface {
	Kind() Kind
	// Params returns the parameters in wire form.
	Params() map[string]float64
	// Validate rejects parameters that yield degenerate windows.
	Validate() error
	// signals computes the raw per-bar signal from close prices.
	signals(closes []float64) []Signal
}

// Parse builds a Config from a kind name and a parameter map. Missing params
// take their defaults; unknown params and non-integral periods are rejected.
// The returned Config has been validated.
func Parse(kind string, params map[string]float64) (Config, error) {
	k := Kind(kind)
	fields, ok := paramSpecs[k]
	if !ok {
		return nil, invalid(k, "", "unknown kind %q", kind)
	}
	for name, v := range params {
		if _, known := fields[name]; !known {
			return nil, invalid(k, name, "is not a parameter of this kind")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid(k, name, "must be finite")
		}
	}

	get := func(name string) float64 {
		if v, ok := params[name]; ok {
			return v
		}
		return fields[name].def
	}
	period := func(name string) (int, error) {
		v := get(name)
		if v != math.Trunc(v) {
			return 0, invalid(k, name, "must be a whole number, got %v", v)
		}
		// Range-check before converting so huge values cannot wrap.
		if v < 1 || v > indicator.MaxPeriod {
			return 0, invalid(k, name, "must be within [1,%d], got %v", indicator.MaxPeriod, v)
		}
		return int(v), nil
	}

	var cfg Config
	var err error
	switch k {
	case KindSMACross:
		var c SMACross
		if c.Fast, err = period("fast"); err != nil {
			return nil, err
		}
		if c.Slow, err = period("slow"); err != nil {
			return nil, err
		}
		cfg = c
	case KindRSIReversion:
		var c RSIReversion
		if c.Period, err = period("period"); err != nil {
			return nil, err
		}
		c.BuyLevel = get("buyLevel")
		c.SellLevel = get("sellLevel")
		cfg = c
	case KindMACD:
		var c MACD
		if c.Fast, err = period("fast"); err != nil {
			return nil, err
		}
		if c.Slow, err = period("slow"); err != nil {
			return nil, err
		}
		if c.Signal, err = period("signal"); err != nil {
			return nil, err
		}
		cfg = c
	case KindBreakout:
		var c Breakout
		if c.Lookback, err = period("lookback"); err != nil {
			return nil, err
		}
		cfg = c
	case KindMomentum:
		var c Momentum
		if c.Period, err = period("period"); err != nil {
			return nil, err
		}
		cfg = c
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the default params of every kind, for discovery endpoints.
func Defaults() map[Kind]map[string]float64 {
	out := make(map[Kind]map[string]float64, len(paramSpecs))
	for k, fields := range paramSpecs {
		p := make(map[string]float64, len(fields))
		for name, f := range fields {
			p[name] = f.def
		}
		out[k] = p
	}
	return out
}

// ParamNames returns the sorted parameter names of kind.
func ParamNames(kind Kind) []string {
	fields := paramSpecs[kind]
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type paramSpec struct {
	def float64
}

var paramSpecs = map[Kind]map[string]paramSpec{
	KindSMACross:     {"fast": {10}, "slow": {30}},
	KindRSIReversion: {"period": {indicator.DefaultRSIPeriod}, "buyLevel": {30}, "sellLevel": {70}},
	KindMACD:         {"fast": {12}, "slow": {26}, "signal": {9}},
	KindBreakout:     {"lookback": {20}},
	KindMomentum:     {"period": {63}},
}

func positive(kind Kind, name string, v int) error {
	if v < 1 || v > indicator.MaxPeriod {
		return invalid(kind, name, "must be within [1,%d], got %d", indicator.MaxPeriod, v)
	}
	return nil
}
