package navigation

// minTransitions is the number of prompt sign changes needed before the
// bit edge histogram is trusted.
const minTransitions = 8

// bitSync finds the millisecond offset, modulo 20, of navigation bit edges
// from the sign changes of the prompt in-phase correlations.
func bitSync(ip []float64) (int, bool) {
	var hist [bitMs]int
	total := 0
	for k := 1; k < len(ip); k++ {
		if ip[k-1]*ip[k] < 0 {
			hist[k%bitMs]++
			total++
		}
	}
	if total < minTransitions {
		return 0, false
	}
	best := 0
	for k, n := range hist {
		if n > hist[best] {
			best = k
		}
	}
	return best, true
}

// integrateBits sums whole bits of prompt correlations starting at ms
// offset. Bit values are 1 for a positive sum. starts holds the ms index
// each bit begins at.
func integrateBits(ip []float64, offset int) (bits []uint8, starts []int) {
	n := (len(ip) - offset) / bitMs
	if n <= 0 {
		return nil, nil
	}
	bits = make([]uint8, n)
	starts = make([]int, n)
	for b := 0; b < n; b++ {
		start := offset + b*bitMs
		sum := 0.0
		for _, v := range ip[start : start+bitMs] {
			sum += v
		}
		if sum > 0 {
			bits[b] = 1
		}
		starts[b] = start
	}
	return bits, starts
}
