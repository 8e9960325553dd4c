package indicator

// Stochastic returns %K over an n-bar low/high range and %D as its d-period mean.
func Stochastic(high, low, closes []float64, n, d int) (k, dLine []float64) {
	lowest := RollingMin(low, n)
	highest := RollingMax(high, n)
	k = Undefined(len(closes))
	for i := range closes {
		k[i] = 100 * safeDiv(closes[i]-lowest[i], highest[i]-lowest[i])
	}
	return k, RollingMean(k, d)
}
