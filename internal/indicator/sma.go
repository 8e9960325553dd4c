package indicator

import talib "github.com/markcheno/go-talib"

// SMA is the simple moving average over n values.
func SMA(x []float64, n int) []float64 {
	if n <= 0 || len(x) < n {
		return Undefined(len(x))
	}
	// talib's running sum cannot skip gaps
	if !allDefined(x) {
		return RollingMean(x, n)
	}
	out := talib.Sma(x, n)
	for i := 0; i < n-1; i++ {
		out[i] = nan
	}
	return out
}

// RollingMin is the lowest value of each trailing window of n values.
func RollingMin(x []float64, n int) []float64 {
	return rollingExtreme(x, n, talib.Min)
}

// RollingMax is the highest value of each trailing window of n values.
func RollingMax(x []float64, n int) []float64 {
	return rollingExtreme(x, n, talib.Max)
}

func rollingExtreme(x []float64, n int, fn func([]float64, int) []float64) []float64 {
	if n <= 0 || len(x) < n || !allDefined(x) {
		return Undefined(len(x))
	}
	if n == 1 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	out := fn(x, n)
	for i := 0; i < n-1; i++ {
		out[i] = nan
	}
	return out
}
