package indicator

import "encoding/json"

// Value is a single indicator output: either absent (warm-up, undefined)
// or a computed float.
type Value struct {
	V  float64
	OK bool
}

// Of returns a present Value.
func Of(v float64) Value { return Value{V: v, OK: true} }

// Absent returns the not-yet-available Value.
func Absent() Value { return Value{} }

// MarshalJSON encodes an absent value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Of(f)
	return nil
}

// Series is an indicator output aligned index-for-index with its input.
type Series []Value

// At returns the value at i and whether it is present. Out-of-range
// indices are absent.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i].V, s[i].OK
}

// FirstValid returns the index of the first present value, or -1.
func (s Series) FirstValid() int {
	for i, v := range s {
		if v.OK {
			return i
		}
	}
	return -1
}

// Floats returns the series with absent values replaced by fill.
func (s Series) Floats(fill float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		if v.OK {
			out[i] = v.V
		} else {
			out[i] = fill
		}
	}
	return out
}

// sub returns a - b wherever both are present.
func sub(a, b Series) Series {
	out := make(Series, len(a))
	for i := range a {
		if a[i].OK && i < len(b) && b[i].OK {
			out[i] = Of(a[i].V - b[i].V)
		}
	}
	return out
}
