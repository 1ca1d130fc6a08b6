package capture

// FloatToPCM16 clamps each sample to [-1, 1] and scales it to int16:
// negatives by 32768, the rest by 32767, truncating toward zero.
func FloatToPCM16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if s < 0 {
			out[i] = int16(s * 32768)
		} else {
			out[i] = int16(s * 32767)
		}
	}
	return out
}
