package indicator

// RSI is the relative strength index using simple rolling means of gains and losses.
// The first bar contributes a zero move. A window with no movement at all is undefined.
func RSI(closes []float64, n int) []float64 {
	gain := make([]float64, len(closes))
	loss := make([]float64, len(closes))
	for i, d := range Diff(closes) {
		switch {
		case !Defined(d):
		case d > 0:
			gain[i] = d
		case d < 0:
			loss[i] = -d
		}
	}
	avgGain := RollingMean(gain, n)
	avgLoss := RollingMean(loss, n)

	out := Undefined(len(closes))
	for i := range out {
		// 100 - 100/(1+g/l) rearranged so a zero loss gives 100
		out[i] = 100 * safeDiv(avgGain[i], avgGain[i]+avgLoss[i])
	}
	return out
}
