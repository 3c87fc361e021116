// Package cacode generates GPS L1 C/A Gold codes (IS-GPS-200) and
// resamples them to receiver sample rates.
package cacode

import (
	"fmt"
	"math"
)

const (
	// Length is the number of chips per code period.
	Length = 1023
	// ChipRate is the nominal C/A chipping rate in chips/s.
	ChipRate = 1.023e6
	// MaxPRN is the highest PRN with a defined G2 delay.
	MaxPRN = 37
)

// g2Delay is the G2 output delay in chips for PRN 1..37.
var g2Delay = [MaxPRN]int{
	5, 6, 7, 8, 17, 18, 139, 140, 141, 251,
	252, 254, 255, 256, 257, 258, 469, 470, 471, 472,
	473, 474, 509, 512, 513, 514, 515, 516, 859, 860,
	861, 862, 863, 950, 947, 948, 950,
}

// Generate returns the ±1 code for prn. Logical 1 chips map to +1.
func Generate(prn int) ([]int8, error) {
	if prn < 1 || prn > MaxPRN {
		return nil, fmt.Errorf("invalid PRN %d", prn)
	}

	// registers hold -1 for logical 1; products of ±1 act as XOR
	var r1, r2 [10]int8
	for i := range r1 {
		r1[i], r2[i] = -1, -1
	}

	var g1, g2 [Length]int8
	for i := 0; i < Length; i++ {
		g1[i] = r1[9]
		g2[i] = r2[9]
		c1 := r1[2] * r1[9]
		c2 := r2[1] * r2[2] * r2[5] * r2[7] * r2[8] * r2[9]
		copy(r1[1:], r1[:9])
		copy(r2[1:], r2[:9])
		r1[0], r2[0] = c1, c2
	}

	code := make([]int8, Length)
	j := Length - g2Delay[prn-1]
	for i := 0; i < Length; i++ {
		code[i] = -g1[i] * g2[(j+i)%Length]
	}
	return code, nil
}

// MustGenerate is Generate for PRNs known to be valid.
func MustGenerate(prn int) []int8 {
	code, err := Generate(prn)
	if err != nil {
		panic(err)
	}
	return code
}

// Sample resamples code to n samples at samplingFreq, starting at
// startPhase chips and advancing codeFreq chips per second. The code wraps
// at period boundaries.
func Sample(code []int8, codeFreq, samplingFreq float64, n int, startPhase float64) []float64 {
	out := make([]float64, n)
	step := codeFreq / samplingFreq
	period := float64(len(code))
	for i := range out {
		p := math.Mod(startPhase+float64(i)*step, period)
		if p < 0 {
			p += period
		}
		out[i] = float64(code[int(p)])
	}
	return out
}
