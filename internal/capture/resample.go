package capture

import "math"

// TargetSampleRate is the rate the STT runtime expects.
const TargetSampleRate = 16000

// Merge concatenates blocks in order.
func Merge(blocks [][]float32) []float32 {
	n := 0
	for _, b := range blocks {
		n += len(b)
	}
	out := make([]float32, 0, n)
	for _, b := range blocks {
		out = append(out, b...)
	}
	return out
}

// Resample converts samples from rate `from` to rate `to` by linear
// interpolation. Output length is round(len/ratio) with ratio = from/to.
// Equal rates return the input unchanged.
func Resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 {
		return in
	}
	if len(in) == 0 {
		return []float32{}
	}
	ratio := float64(from) / float64(to)
	n := int(math.Round(float64(len(in)) / ratio))
	last := len(in) - 1
	out := make([]float32, n)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(math.Floor(pos))
		if idx > last {
			idx = last
		}
		next := idx + 1
		if next > last {
			next = last
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx] + (in[next]-in[idx])*frac
	}
	return out
}
