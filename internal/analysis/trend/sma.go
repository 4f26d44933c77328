package trend

// smaAt is the mean of the trailing window values ending at i; false when
// fewer than window samples exist up to i.
func smaAt(values []float64, window, i int) (float64, bool) {
	if window <= 0 || i < window-1 || i >= len(values) {
		return 0, false
	}
	var sum float64
	for _, v := range values[i-window+1 : i+1] {
		sum += v
	}
	return sum / float64(window), true
}
