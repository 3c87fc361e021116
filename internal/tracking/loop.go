package tracking

import "math"

// loopFilter is a second order proportional plus integral filter in the
// form used by most software receivers. Coefficients are derived from the
// noise bandwidth, damping ratio and loop gain.
type loopFilter struct {
	tau1, tau2 float64
	pdi        float64
	nco        float64
	prevErr    float64
}

func newLoopFilter(bandwidth, zeta, gain, pdi float64) loopFilter {
	wn := bandwidth * 8 * zeta / (4*zeta*zeta + 1)
	return loopFilter{
		tau1: gain / (wn * wn),
		tau2: 2 * zeta / wn,
		pdi:  pdi,
	}
}

// update feeds one discriminator output and returns the new NCO command.
func (f *loopFilter) update(err float64) float64 {
	f.nco += f.tau2/f.tau1*(err-f.prevErr) + err*f.pdi/f.tau1
	f.prevErr = err
	return f.nco
}

// costas is the two quadrant arctangent discriminator, in cycles. It is
// insensitive to navigation bit flips.
func costas(i, q float64) float64 {
	if i == 0 {
		return 0
	}
	return math.Atan(q/i) / (2 * math.Pi)
}

// earlyMinusLate is the normalised envelope discriminator, in chips for a
// one chip early-late spacing.
func earlyMinusLate(ie, qe, il, ql float64) float64 {
	e := math.Hypot(ie, qe)
	l := math.Hypot(il, ql)
	if e+l == 0 {
		return 0
	}
	return (e - l) / (e + l)
}

// freqDiscriminator returns the carrier frequency error in Hz from two
// consecutive prompt correlations spaced t seconds apart. The arctangent of
// the ratio keeps it insensitive to bit flips.
func freqDiscriminator(i1, q1, i2, q2, t float64) float64 {
	dot := i1*i2 + q1*q2
	cross := i1*q2 - i2*q1
	if dot == 0 {
		return 0
	}
	return math.Atan(cross/dot) / (2 * math.Pi * t)
}
