package indicator

// Highest returns the rolling maximum over the trailing period values.
// The first value is at index period-1.
func Highest(values []float64, period int) Series {
	return rollingExtreme(values, period, func(a, b float64) bool { return a >= b })
}

// Lowest returns the rolling minimum over the trailing period values.
func Lowest(values []float64, period int) Series {
	return rollingExtreme(values, period, func(a, b float64) bool { return a <= b })
}

// rollingExtreme keeps a monotonic deque of indices whose values dominate
// everything after them, so the window extreme is always at the front.
func rollingExtreme(values []float64, period int, dominates func(a, b float64) bool) Series {
	out := make(Series, len(values))
	if period <= 0 || period > len(values) {
		return out
	}
	deque := make([]int, 0, period)
	for i, v := range values {
		for len(deque) > 0 && dominates(v, values[deque[len(deque)-1]]) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if deque[0] <= i-period {
			deque = deque[1:]
		}
		if i >= period-1 {
			out[i] = Of(values[deque[0]])
		}
	}
	return out
}
