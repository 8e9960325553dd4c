package indicator

// Bollinger returns the n-period SMA with bands k sample deviations above and below.
func Bollinger(closes []float64, n int, k float64) (middle, upper, lower []float64) {
	middle = SMA(closes, n)
	std := RollingStd(closes, n)
	upper = Undefined(len(closes))
	lower = Undefined(len(closes))
	for i := range closes {
		if Defined(middle[i]) && Defined(std[i]) {
			upper[i] = middle[i] + k*std[i]
			lower[i] = middle[i] - k*std[i]
		}
	}
	return middle, upper, lower
}
