package core

import (
	"math"
	"time"
)

// gpsEpoch is the origin of GPS time.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// GPSLeapSeconds is the GPS-UTC offset applied when converting solution
// timestamps for export.
const GPSLeapSeconds = 18

const secondsPerWeek = 604800

// GPSTime is a GPS week number and time of week in seconds.
type GPSTime struct {
	Week int     `json:"week"`
	TOW  float64 `json:"tow"`
}

// Add returns t shifted by d seconds, normalising the week rollover.
func (t GPSTime) Add(d float64) GPSTime {
	tow := t.TOW + d
	week := t.Week
	for tow >= secondsPerWeek {
		tow -= secondsPerWeek
		week++
	}
	for tow < 0 {
		tow += secondsPerWeek
		week--
	}
	return GPSTime{Week: week, TOW: tow}
}

// Sub returns t-u in seconds.
func (t GPSTime) Sub(u GPSTime) float64 {
	return float64(t.Week-u.Week)*secondsPerWeek + t.TOW - u.TOW
}

// UTC converts to wall clock time.
func (t GPSTime) UTC() time.Time {
	sec, frac := math.Modf(t.TOW)
	return gpsEpoch.
		AddDate(0, 0, 7*t.Week).
		Add(time.Duration(sec)*time.Second + time.Duration(math.Round(frac*1e9))).
		Add(-GPSLeapSeconds * time.Second)
}

// LLH is a geodetic position: degrees and metres above the WGS84 ellipsoid.
type LLH struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height"`
}

// NED is a velocity in the local north/east/down frame, m/s.
type NED struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	Down  float64 `json:"down"`
}

// NavigationSolution is one computed navigation epoch.
type NavigationSolution struct {
	Time       GPSTime    `json:"time"`
	ECEF       [3]float64 `json:"ecef"`
	Position   LLH        `json:"position"`
	VelECEF    [3]float64 `json:"velEcef"`
	Velocity   NED        `json:"velocity"`
	ClockBias  float64    `json:"clockBias"`  // metres
	ClockDrift float64    `json:"clockDrift"` // m/s
	GDOP       float64    `json:"gdop"`
	PRNs       []int      `json:"prns"`
}

// NavRecord is the persisted reduction of a NavigationSolution.
type NavRecord struct {
	Time     GPSTime `json:"time"`
	Position LLH     `json:"position"`
	Velocity NED     `json:"velocity"`
}

// Record reduces s to its persisted tuple form.
func (s NavigationSolution) Record() NavRecord {
	return NavRecord{Time: s.Time, Position: s.Position, Velocity: s.Velocity}
}

// Records reduces solutions preserving epoch order.
func Records(solutions []NavigationSolution) []NavRecord {
	out := make([]NavRecord, len(solutions))
	for i, s := range solutions {
		out[i] = s.Record()
	}
	return out
}
