package navigation

import (
	"math"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
)

var wgs84E2 = wgs84F * (2 - wgs84F)

// ECEFToLLH converts an earth centred position to geodetic latitude and
// longitude in degrees and ellipsoidal height in metres.
func ECEFToLLH(x [3]float64) core.LLH {
	lon := math.Atan2(x[1], x[0])
	p := math.Hypot(x[0], x[1])
	if p < 1e-9 {
		// on the polar axis
		lat := math.Copysign(math.Pi/2, x[2])
		b := wgs84A * math.Sqrt(1-wgs84E2)
		return core.LLH{Lat: deg(lat), Lon: deg(lon), Height: math.Abs(x[2]) - b}
	}

	lat := math.Atan2(x[2], p*(1-wgs84E2))
	h := 0.0
	for i := 0; i < 20; i++ {
		s := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*s*s)
		nextH := p/math.Cos(lat) - n
		lat = math.Atan2(x[2], p*(1-wgs84E2*n/(n+nextH)))
		done := math.Abs(nextH-h) < 1e-4
		h = nextH
		if done {
			break
		}
	}
	return core.LLH{Lat: deg(lat), Lon: deg(lon), Height: h}
}

// LLHToECEF is the inverse of ECEFToLLH.
func LLHToECEF(p core.LLH) [3]float64 {
	lat, lon := rad(p.Lat), rad(p.Lon)
	s := math.Sin(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*s*s)
	return [3]float64{
		(n + p.Height) * math.Cos(lat) * math.Cos(lon),
		(n + p.Height) * math.Cos(lat) * math.Sin(lon),
		(n*(1-wgs84E2) + p.Height) * s,
	}
}

// ECEFToNED rotates an earth centred vector into the local north, east,
// down frame at the given geodetic position.
func ECEFToNED(v [3]float64, at core.LLH) core.NED {
	lat, lon := rad(at.Lat), rad(at.Lon)
	sl, cl := math.Sin(lat), math.Cos(lat)
	so, co := math.Sin(lon), math.Cos(lon)
	return core.NED{
		North: -sl*co*v[0] - sl*so*v[1] + cl*v[2],
		East:  -so*v[0] + co*v[1],
		Down:  -cl*co*v[0] - cl*so*v[1] - sl*v[2],
	}
}

// elevation returns the angle of sat above the horizon of rx, in degrees.
func elevation(rx, sat [3]float64) float64 {
	at := ECEFToLLH(rx)
	d := [3]float64{sat[0] - rx[0], sat[1] - rx[1], sat[2] - rx[2]}
	ned := ECEFToNED(d, at)
	horiz := math.Hypot(ned.North, ned.East)
	return deg(math.Atan2(-ned.Down, horiz))
}

func deg(r float64) float64 { return r * 180 / math.Pi }
func rad(d float64) float64 { return d * math.Pi / 180 }
