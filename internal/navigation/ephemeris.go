package navigation

import "math"

// IS-GPS-200 constants.
const (
	SpeedOfLight  = 299792458.0
	earthGM       = 3.986005e14
	earthRotation = 7.2921151467e-5
	relativisticF = -4.442807633e-10
	gpsPi         = 3.1415926535898
	halfWeek      = 302400.0
)

const (
	p2_5  = 0.03125
	p2_19 = 1.907348632812500e-06
	p2_29 = 1.862645149230957e-09
	p2_31 = 4.656612873077393e-10
	p2_33 = 1.164153218269348e-10
	p2_43 = 1.136868377216160e-13
	p2_55 = 2.775557561562891e-17
)

// Ephemeris holds the broadcast orbit and clock parameters of one satellite.
// Angles are in radians, times in seconds of the GPS week.
type Ephemeris struct {
	PRN    int
	Week   int
	Health int
	IODC   int
	IODE   int

	TGD, Toc      float64
	Af0, Af1, Af2 float64

	Crs, Crc, Cus, Cuc, Cis, Cic float64
	DeltaN, M0, E, SqrtA, Toe    float64
	Omega0, I0, Omega            float64
	OmegaDot, IDOT               float64
}

// ephemerisSet collects subframes 1 to 3 until they describe the same
// issue of data.
type ephemerisSet struct {
	eph  Ephemeris
	have [4]bool
	iode [4]int // IODE as seen in subframes 2 and 3, IODC low byte in 1
}

// add decodes one parity checked subframe. It returns the subframe ID and
// the transmit time of the subframe start.
func (s *ephemerisSet) add(sf []uint8) (int, float64) {
	id := int(getbitu(sf, 49, 3))
	tow := float64(getbitu(sf, 30, 17))*6 - 6

	e := &s.eph
	switch id {
	case 1:
		e.Week = adjustWeek(int(getbitu(sf, 60, 10)))
		e.Health = int(getbitu(sf, 76, 6))
		e.IODC = int(getbitu2(sf, 82, 2, 210, 8))
		e.TGD = float64(getbits(sf, 196, 8)) * p2_31
		e.Toc = float64(getbitu(sf, 218, 16)) * 16
		e.Af2 = float64(getbits(sf, 240, 8)) * p2_55
		e.Af1 = float64(getbits(sf, 248, 16)) * p2_43
		e.Af0 = float64(getbits(sf, 270, 22)) * p2_31
		s.have[1] = true
		s.iode[1] = e.IODC & 0xff
	case 2:
		e.IODE = int(getbitu(sf, 60, 8))
		e.Crs = float64(getbits(sf, 68, 16)) * p2_5
		e.DeltaN = float64(getbits(sf, 90, 16)) * p2_43 * gpsPi
		e.M0 = float64(getbits2(sf, 106, 8, 120, 24)) * p2_31 * gpsPi
		e.Cuc = float64(getbits(sf, 150, 16)) * p2_29
		e.E = float64(getbitu2(sf, 166, 8, 180, 24)) * p2_33
		e.Cus = float64(getbits(sf, 210, 16)) * p2_29
		e.SqrtA = float64(getbitu2(sf, 226, 8, 240, 24)) * p2_19
		e.Toe = float64(getbitu(sf, 270, 16)) * 16
		s.have[2] = true
		s.iode[2] = e.IODE
	case 3:
		e.Cic = float64(getbits(sf, 60, 16)) * p2_29
		e.Omega0 = float64(getbits2(sf, 76, 8, 90, 24)) * p2_31 * gpsPi
		e.Cis = float64(getbits(sf, 120, 16)) * p2_29
		e.I0 = float64(getbits2(sf, 136, 8, 150, 24)) * p2_31 * gpsPi
		e.Crc = float64(getbits(sf, 180, 16)) * p2_5
		e.Omega = float64(getbits2(sf, 196, 8, 210, 24)) * p2_31 * gpsPi
		e.OmegaDot = float64(getbits(sf, 240, 24)) * p2_43 * gpsPi
		s.iode[3] = int(getbitu(sf, 270, 8))
		e.IDOT = float64(getbits(sf, 278, 14)) * p2_43 * gpsPi
		s.have[3] = true
	}
	return id, tow
}

// complete reports whether subframes 1 to 3 share one issue of data.
func (s *ephemerisSet) complete() bool {
	return s.have[1] && s.have[2] && s.have[3] &&
		s.iode[1] == s.iode[2] && s.iode[2] == s.iode[3]
}

// adjustWeek resolves the ten bit week number against December 2009.
func adjustWeek(week int) int {
	const ref = 1560
	return week + (ref-week+512)/1024*1024
}

// wrapTime folds a time difference into half a week either side.
func wrapTime(t float64) float64 {
	switch {
	case t > halfWeek:
		return t - 2*halfWeek
	case t < -halfWeek:
		return t + 2*halfWeek
	}
	return t
}

// eccentricAnomaly solves Kepler's equation at time t.
func (e *Ephemeris) eccentricAnomaly(t float64) float64 {
	a := e.SqrtA * e.SqrtA
	n := math.Sqrt(earthGM/(a*a*a)) + e.DeltaN
	m := e.M0 + n*wrapTime(t-e.Toe)
	ea := m
	for i := 0; i < 30; i++ {
		next := m + e.E*math.Sin(ea)
		if math.Abs(next-ea) < 1e-13 {
			return next
		}
		ea = next
	}
	return ea
}

// ClockCorrection returns the satellite clock offset at t in seconds,
// relativistic term included and group delay removed.
func (e *Ephemeris) ClockCorrection(t float64) float64 {
	dt := wrapTime(t - e.Toc)
	ea := e.eccentricAnomaly(t)
	return e.Af0 + e.Af1*dt + e.Af2*dt*dt +
		relativisticF*e.E*e.SqrtA*math.Sin(ea) - e.TGD
}

// ClockDrift returns the satellite clock rate at t in s/s.
func (e *Ephemeris) ClockDrift(t float64) float64 {
	return e.Af1 + 2*e.Af2*wrapTime(t-e.Toc)
}

// Position returns the ECEF position of the satellite at GPS time t.
func (e *Ephemeris) Position(t float64) [3]float64 {
	tk := wrapTime(t - e.Toe)
	a := e.SqrtA * e.SqrtA
	ea := e.eccentricAnomaly(t)

	nu := math.Atan2(math.Sqrt(1-e.E*e.E)*math.Sin(ea), math.Cos(ea)-e.E)
	phi := nu + e.Omega
	s2, c2 := math.Sin(2*phi), math.Cos(2*phi)

	u := phi + e.Cus*s2 + e.Cuc*c2
	r := a*(1-e.E*math.Cos(ea)) + e.Crs*s2 + e.Crc*c2
	inc := e.I0 + e.IDOT*tk + e.Cis*s2 + e.Cic*c2

	xp, yp := r*math.Cos(u), r*math.Sin(u)
	om := e.Omega0 + (e.OmegaDot-earthRotation)*tk - earthRotation*e.Toe

	so, co := math.Sin(om), math.Cos(om)
	return [3]float64{
		xp*co - yp*math.Cos(inc)*so,
		xp*so + yp*math.Cos(inc)*co,
		yp * math.Sin(inc),
	}
}

// Velocity differentiates Position over one second around t.
func (e *Ephemeris) Velocity(t float64) [3]float64 {
	a := e.Position(t - 0.5)
	b := e.Position(t + 0.5)
	return [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
}
