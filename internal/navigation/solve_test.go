package navigation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// skyPosition places a satellite at azimuth az and elevation el, degrees,
// as seen from rx, on a sphere of the given radius.
func skyPosition(rx core.LLH, az, el, radius float64) [3]float64 {
	r := LLHToECEF(rx)
	lat, lon := rad(rx.Lat), rad(rx.Lon)
	azr, elr := rad(az), rad(el)
	n, e, u := math.Cos(elr)*math.Cos(azr), math.Cos(elr)*math.Sin(azr), math.Sin(elr)
	sl, cl := math.Sin(lat), math.Cos(lat)
	so, co := math.Sin(lon), math.Cos(lon)
	d := [3]float64{
		-sl*co*n - so*e + cl*co*u,
		-sl*so*n + co*e + cl*so*u,
		cl*n + sl*u,
	}
	b := 2 * (r[0]*d[0] + r[1]*d[1] + r[2]*d[2])
	c := r[0]*r[0] + r[1]*r[1] + r[2]*r[2] - radius*radius
	rho := (-b + math.Sqrt(b*b-4*c)) / 2
	return [3]float64{r[0] + rho*d[0], r[1] + rho*d[1], r[2] + rho*d[2]}
}

func dist(a, b [3]float64) float64 {
	return math.Sqrt((a[0]-b[0])*(a[0]-b[0]) + (a[1]-b[1])*(a[1]-b[1]) + (a[2]-b[2])*(a[2]-b[2]))
}

// rangeWithRotation is the pseudorange a receiver at rx sees from a
// satellite that was at sat when transmitting.
func rangeWithRotation(sat, rx [3]float64) float64 {
	tau := 0.07
	for i := 0; i < 5; i++ {
		tau = dist(sagnac(sat, tau), rx) / SpeedOfLight
	}
	return tau * SpeedOfLight
}

var testSky = [][2]float64{{0, 60}, {90, 45}, {180, 50}, {270, 40}, {45, 25}, {225, 70}}

func TestSolvePosition(t *testing.T) {
	truth := core.LLH{Lat: 45, Lon: 10, Height: 200}
	rx := LLHToECEF(truth)
	const bias = 12345.6

	var sats [][3]float64
	var pr []float64
	for _, ae := range testSky {
		s := skyPosition(truth, ae[0], ae[1], 26560e3)
		sats = append(sats, s)
		pr = append(pr, rangeWithRotation(s, rx)+bias)
	}

	f, err := solvePosition(sats, pr)
	require.NoError(t, err)
	assert.Less(t, dist(f.pos, rx), 0.01)
	assert.InDelta(t, bias, f.bias, 0.01)
	assert.Greater(t, f.gdop, 1.0)
	assert.Less(t, f.gdop, 10.0)

	llh := ECEFToLLH(f.pos)
	assert.InDelta(t, truth.Lat, llh.Lat, 1e-7)
	assert.InDelta(t, truth.Lon, llh.Lon, 1e-7)
	assert.InDelta(t, truth.Height, llh.Height, 0.01)
}

func TestSolvePosition_TooFewSatellites(t *testing.T) {
	_, err := solvePosition(make([][3]float64, 3), make([]float64, 3))
	assert.ErrorIs(t, err, ErrGeometry)

	_, err = solvePosition(make([][3]float64, 4), make([]float64, 5))
	assert.ErrorIs(t, err, ErrGeometry)
}

func TestSolvePosition_Degenerate(t *testing.T) {
	s := [3]float64{26560e3, 0, 0}
	_, err := solvePosition([][3]float64{s, s, s, s}, []float64{2e7, 2e7, 2e7, 2e7})
	assert.ErrorIs(t, err, ErrGeometry)
}

func TestSolveVelocity(t *testing.T) {
	truth := core.LLH{Lat: -20, Lon: 130, Height: 0}
	rx := LLHToECEF(truth)
	vr := [3]float64{10, -5, 2}
	const drift = 3.5

	var sats, vels [][3]float64
	var rates []float64
	for i, ae := range testSky {
		s := skyPosition(truth, ae[0], ae[1], 26560e3)
		v := [3]float64{float64(i) * 300, -1000 + float64(i)*100, 2500}
		d := [3]float64{s[0] - rx[0], s[1] - rx[1], s[2] - rx[2]}
		r := dist(s, rx)
		rate := (d[0]*(v[0]-vr[0]) + d[1]*(v[1]-vr[1]) + d[2]*(v[2]-vr[2])) / r
		sats, vels, rates = append(sats, s), append(vels, v), append(rates, rate+drift)
	}

	v, dr, err := solveVelocity(rx, sats, vels, rates)
	require.NoError(t, err)
	for k := range v {
		assert.InDelta(t, vr[k], v[k], 1e-6)
	}
	assert.InDelta(t, drift, dr, 1e-6)
}
