package indicator

// ROC returns the percentage rate of change over period bars:
// (v[i]-v[i-period]) / v[i-period] * 100. It is absent during warm-up and
// wherever the reference value is exactly zero.
func ROC(values []float64, period int) Series {
	out := make(Series, len(values))
	if period <= 0 {
		return out
	}
	for i := period; i < len(values); i++ {
		ref := values[i-period]
		if ref == 0 {
			continue
		}
		out[i] = Of((values[i] - ref) / ref * 100)
	}
	return out
}
