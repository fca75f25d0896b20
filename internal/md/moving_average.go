package md

// MovingAverage returns the simple moving average of every full window in
// values, oldest first. The boolean is false when values is shorter than the
// window; that is an expected outcome, not an error.
func MovingAverage(values []float64, window int) ([]float64, bool) {
	if window <= 0 || len(values) < window {
		return nil, false
	}
	cumsum := make([]float64, len(values)+1)
	for i, v := range values {
		cumsum[i+1] = cumsum[i] + v
	}
	out := make([]float64, len(values)-window+1)
	w := float64(window)
	for i := range out {
		out[i] = (cumsum[i+window] - cumsum[i]) / w
	}
	return out, true
}

// LastMovingAverage is MovingAverage reduced to its most recent value.
func LastMovingAverage(values []float64, window int) (float64, bool) {
	avg, ok := MovingAverage(values, window)
	if !ok {
		return 0, false
	}
	return avg[len(avg)-1], true
}
