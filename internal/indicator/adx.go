package indicator

import "math"

// DirectionalIndex holds the ADX family of series.
type DirectionalIndex struct {
	TR      []float64
	PlusDI  []float64
	MinusDI []float64
	DX      []float64
	ADX     []float64
}

// ADX computes the average directional index with simple rolling means over n bars.
// The first bar has no predecessor: its true range is high-low and both movements are zero.
func ADX(high, low, closes []float64, n int) DirectionalIndex {
	size := len(closes)
	tr := make([]float64, size)
	plusDM := make([]float64, size)
	minusDM := make([]float64, size)
	for i := 0; i < size; i++ {
		tr[i] = high[i] - low[i]
		if i == 0 {
			continue
		}
		tr[i] = math.Max(tr[i], math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))

		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	avgTR := RollingMean(tr, n)
	avgPlus := RollingMean(plusDM, n)
	avgMinus := RollingMean(minusDM, n)

	out := DirectionalIndex{
		TR:      tr,
		PlusDI:  Undefined(size),
		MinusDI: Undefined(size),
		DX:      Undefined(size),
	}
	for i := 0; i < size; i++ {
		out.PlusDI[i] = 100 * safeDiv(avgPlus[i], avgTR[i])
		out.MinusDI[i] = 100 * safeDiv(avgMinus[i], avgTR[i])
		out.DX[i] = 100 * safeDiv(math.Abs(out.PlusDI[i]-out.MinusDI[i]), out.PlusDI[i]+out.MinusDI[i])
	}
	out.ADX = RollingMean(out.DX, n)
	return out
}
