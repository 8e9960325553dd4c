package indicator

// EMA smooths x with alpha = 2/(span+1), seeded with the first defined value.
// Undefined inputs carry the previous value forward.
func EMA(x []float64, span int) []float64 {
	out := Undefined(len(x))
	if span < 1 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	prev := nan
	for i, v := range x {
		switch {
		case !Defined(v):
			out[i] = prev
			continue
		case !Defined(prev):
			prev = v
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}
