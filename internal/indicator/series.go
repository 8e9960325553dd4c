// Package indicator holds the rolling-window calculators shared by every pipeline stage.
// Every function maps an ordered series to a parallel series; NaN marks an undefined position.
package indicator

import "math"

var nan = math.NaN()

// Defined reports whether v holds a usable value.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Undefined returns a series of n undefined values.
func Undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// Diff returns x[i]-x[i-1]; position 0 is undefined.
func Diff(x []float64) []float64 {
	out := Undefined(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// RollingMean averages each trailing window of n values.
// A window that is incomplete or holds an undefined value is undefined.
func RollingMean(x []float64, n int) []float64 {
	out := Undefined(len(x))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(x); i++ {
		sum := 0.0
		ok := true
		for _, v := range x[i-n+1 : i+1] {
			if !Defined(v) {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// RollingStd is the sample standard deviation (n-1 denominator) of each trailing window.
func RollingStd(x []float64, n int) []float64 {
	out := Undefined(len(x))
	if n < 2 {
		return out
	}
	mean := RollingMean(x, n)
	for i := n - 1; i < len(x); i++ {
		if !Defined(mean[i]) {
			continue
		}
		ss := 0.0
		for _, v := range x[i-n+1 : i+1] {
			d := v - mean[i]
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(n-1))
	}
	return out
}

func allDefined(x []float64) bool {
	for _, v := range x {
		if !Defined(v) {
			return false
		}
	}
	return true
}

func safeDiv(num, den float64) float64 {
	if !Defined(num) || !Defined(den) || den == 0 {
		return nan
	}
	return num / den
}
