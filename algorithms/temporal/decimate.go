package temporal

// Decimate downsamples buffer by the integer ratio floor(inRate/outRate),
// averaging each block of ratio samples. It returns the new buffer and the
// effective output rate, which is inRate/ratio and can differ from outRate
// when the rates are not integer multiples. When outRate >= inRate the input
// is returned unchanged as a copy.
func Decimate(buffer []float64, inRate, outRate int) ([]float64, int) {
	if outRate <= 0 || outRate >= inRate {
		out := make([]float64, len(buffer))
		copy(out, buffer)
		return out, inRate
	}

	ratio := inRate / outRate
	if ratio <= 1 {
		out := make([]float64, len(buffer))
		copy(out, buffer)
		return out, inRate
	}

	n := len(buffer) / ratio
	out := make([]float64, n)
	for i := range n {
		sum := 0.0
		for _, s := range buffer[i*ratio : (i+1)*ratio] {
			sum += s
		}
		out[i] = sum / float64(ratio)
	}
	return out, inRate / ratio
}
