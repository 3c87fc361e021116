package navigation

// Navigation message layout: 300 bit subframes of ten 30 bit words, each
// word carrying 24 data bits and 6 parity bits.
const (
	wordBits     = 30
	subframeBits = 300
	bitMs        = 20
)

var preamble = [8]uint8{1, 0, 0, 0, 1, 0, 1, 1}

// parityTaps lists, per parity bit D25..D30, the data bits d1..d24 (one
// based) that enter its modulo-2 sum, and whether D29* (false) or D30*
// (true) of the previous word is added.
var parityTaps = [6]struct {
	prev30 bool
	data   []int
}{
	{false, []int{1, 2, 3, 5, 6, 10, 11, 12, 13, 14, 17, 18, 20, 23}},
	{true, []int{2, 3, 4, 6, 7, 11, 12, 13, 14, 15, 18, 19, 21, 24}},
	{false, []int{1, 3, 4, 5, 7, 8, 12, 13, 14, 15, 16, 19, 20, 22}},
	{true, []int{2, 4, 5, 6, 8, 9, 13, 14, 15, 16, 17, 20, 21, 23}},
	{true, []int{1, 3, 5, 6, 7, 9, 10, 14, 15, 16, 17, 18, 21, 22, 24}},
	{false, []int{3, 5, 6, 8, 9, 10, 11, 13, 15, 19, 22, 23, 24}},
}

// parityBits computes D25..D30 for 24 source data bits d given the last two
// bits of the previous word.
func parityBits(d []uint8, d29, d30 uint8) [6]uint8 {
	var out [6]uint8
	for i, tap := range parityTaps {
		p := d29
		if tap.prev30 {
			p = d30
		}
		for _, k := range tap.data {
			p ^= d[k-1]
		}
		out[i] = p
	}
	return out
}

// checkWord verifies the parity of one transmitted word. On success it
// returns the 24 source data bits, undoing the D30* inversion.
func checkWord(word []uint8, d29, d30 uint8) ([24]uint8, bool) {
	var d [24]uint8
	for i := range d {
		d[i] = word[i] ^ d30
	}
	p := parityBits(d[:], d29, d30)
	for i, b := range p {
		if word[24+i] != b {
			return d, false
		}
	}
	return d, true
}

// decodeSubframe checks all ten words of the subframe starting at bits[at].
// The two bits before at are the tail of the previous word. It returns the
// subframe with parity bits kept in place and data bits corrected.
func decodeSubframe(bits []uint8, at int) ([subframeBits]uint8, bool) {
	var out [subframeBits]uint8
	if at < 2 || at+subframeBits > len(bits) {
		return out, false
	}
	for w := 0; w < 10; w++ {
		start := at + w*wordBits
		word := bits[start : start+wordBits]
		d, ok := checkWord(word, bits[start-2], bits[start-1])
		if !ok {
			return out, false
		}
		copy(out[w*wordBits:], d[:])
		copy(out[w*wordBits+24:], word[24:])
	}
	return out, true
}

// findPreamble returns the first bit index where a subframe with valid
// parity begins, and whether the bit stream is inverted. Inverted streams
// come from a Costas loop locked half a cycle off.
func findPreamble(bits []uint8) (int, bool, bool) {
	inv := make([]uint8, len(bits))
	for i, b := range bits {
		inv[i] = b ^ 1
	}
	for i := 2; i+subframeBits <= len(bits); i++ {
		for _, cand := range []struct {
			bits     []uint8
			inverted bool
		}{{bits, false}, {inv, true}} {
			if !hasPreamble(cand.bits[i:]) {
				continue
			}
			if _, ok := decodeSubframe(cand.bits, i); ok {
				return i, cand.inverted, true
			}
		}
	}
	return 0, false, false
}

func hasPreamble(bits []uint8) bool {
	for k, p := range preamble {
		if bits[k] != p {
			return false
		}
	}
	return true
}

// getbitu reads an unsigned field of n bits at pos.
func getbitu(bits []uint8, pos, n int) uint32 {
	var v uint32
	for i := pos; i < pos+n; i++ {
		v = v<<1 | uint32(bits[i]&1)
	}
	return v
}

// getbits reads a two's complement field of n bits at pos.
func getbits(bits []uint8, pos, n int) int32 {
	v := getbitu(bits, pos, n)
	if n <= 0 || n >= 32 || v&(1<<(n-1)) == 0 {
		return int32(v)
	}
	return int32(v) | int32(-1)<<n
}

// getbitu2 joins two unsigned fields split across words.
func getbitu2(bits []uint8, p1, n1, p2, n2 int) uint32 {
	return getbitu(bits, p1, n1)<<n2 | getbitu(bits, p2, n2)
}

// getbits2 joins two fields split across words, the first holding the sign.
func getbits2(bits []uint8, p1, n1, p2, n2 int) int32 {
	if getbitu(bits, p1, 1) != 0 {
		return int32(uint32(getbits(bits, p1, n1))<<n2 | getbitu(bits, p2, n2))
	}
	return int32(getbitu2(bits, p1, n1, p2, n2))
}
