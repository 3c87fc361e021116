// Package navigation turns tracked channels into position, velocity and time
// solutions: it decodes the broadcast ephemeris from the navigation bits,
// forms pseudoranges from the code timing and solves by least squares.
package navigation

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// L1 wavelength in metres.
const l1Wavelength = SpeedOfLight / 1575.42e6

// nominalTravel seeds the receiver clock: the latest signal is assumed to
// have travelled this long, in seconds.
const nominalTravel = 68.802e-3

// Config tunes the solver.
type Config struct {
	SolutionPeriodMs int
	MinSatellites    int
	ElevationMaskDeg float64
}

// Engine computes navigation solutions.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New creates a navigation engine.
func New(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SolutionPeriodMs <= 0 {
		cfg.SolutionPeriodMs = 200
	}
	if cfg.MinSatellites < 4 {
		cfg.MinSatellites = 4
	}
	return &Engine{cfg: cfg, log: log.With("component", "navigation")}
}

// channel is a tracked satellite whose transmit time is known.
type channel struct {
	prn      int
	eph      Ephemeris
	state    *core.ChannelState
	firstMs  int     // ms index of the first decoded subframe start
	firstTOW float64 // transmit time of that code period
}

// transmitTime returns the satellite time at which the signal received at
// sample s left the satellite, and the ms index it falls in.
func (c *channel) transmitTime(s float64) (float64, int, bool) {
	cs := c.state.CodeStart
	k := sort.SearchFloat64s(cs, s)
	if k < len(cs) && cs[k] == s {
		k++
	}
	k--
	if k < c.firstMs || k+1 >= len(cs) {
		return 0, 0, false
	}
	frac := (s - cs[k]) / (cs[k+1] - cs[k])
	return c.firstTOW + (float64(k-c.firstMs)+frac)*1e-3, k, true
}

// Navigate computes one solution every SolutionPeriodMs from the tracked
// channels. Epochs with fewer than MinSatellites usable satellites are
// skipped; an empty result is not an error.
func (e *Engine) Navigate(ctx context.Context, state core.TrackState, p core.RunParameters) ([]core.NavigationSolution, error) {
	fs := state.SamplingFreq
	if fs <= 0 {
		fs = p.SamplingFreq
	}

	var chans []*channel
	for i := range state.Channels {
		ch, ok := e.decodeChannel(&state.Channels[i])
		if ok {
			chans = append(chans, ch)
		}
	}
	if len(chans) < e.cfg.MinSatellites {
		e.log.Warn("Not enough satellites with ephemeris", "have", len(chans), "need", e.cfg.MinSatellites)
		return []core.NavigationSolution{}, nil
	}

	// epochs run from the latest first subframe to the longest channel end
	start, end := math.Inf(-1), math.Inf(-1)
	for _, c := range chans {
		cs := c.state.CodeStart
		start = math.Max(start, cs[c.firstMs])
		end = math.Max(end, cs[len(cs)-1])
	}

	step := float64(e.cfg.SolutionPeriodMs) * 1e-3 * fs
	solutions := []core.NavigationSolution{}
	var rxRef, sampleRef float64
	haveRef := false

	for s := start; s < end; s += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs := e.observe(chans, s)
		if len(obs) < e.cfg.MinSatellites {
			e.log.Debug("Skipping epoch", "sample", s, "satellites", len(obs))
			continue
		}
		if !haveRef {
			latest := math.Inf(-1)
			for _, o := range obs {
				latest = math.Max(latest, o.tx)
			}
			rxRef, sampleRef, haveRef = latest+nominalTravel, s, true
		}
		rx := rxRef + (s-sampleRef)/fs

		sol, err := e.solve(obs, rx, p.IF)
		if err != nil {
			e.log.Debug("Epoch not solved", "sample", s, "error", err)
			continue
		}
		solutions = append(solutions, sol)
	}

	e.log.Info("Navigation finished", "solutions", len(solutions), "satellites", len(chans))
	return solutions, nil
}

// decodeChannel synchronises to the bit stream of one channel and decodes
// its ephemeris.
func (e *Engine) decodeChannel(st *core.ChannelState) (*channel, bool) {
	log := e.log.With("prn", st.PRN)
	offset, ok := bitSync(st.IP)
	if !ok {
		log.Warn("Bit synchronisation failed")
		return nil, false
	}
	bits, starts := integrateBits(st.IP, offset)
	at, inverted, ok := findPreamble(bits)
	if !ok {
		log.Warn("No subframe preamble found", "bits", len(bits))
		return nil, false
	}
	if inverted {
		for i := range bits {
			bits[i] ^= 1
		}
	}

	set := ephemerisSet{eph: Ephemeris{PRN: st.PRN}}
	first := -1
	var firstTOW float64
	for i := at; i+subframeBits <= len(bits); i += subframeBits {
		sf, ok := decodeSubframe(bits, i)
		if !ok {
			log.Debug("Subframe parity failed", "bit", i)
			continue
		}
		id, tow := set.add(sf[:])
		if first < 0 {
			first, firstTOW = starts[i], tow
		}
		log.Debug("Decoded subframe", "id", id, "tow", tow)
	}
	if first < 0 || !set.complete() {
		log.Warn("Ephemeris incomplete")
		return nil, false
	}
	if set.eph.Health != 0 {
		log.Warn("Satellite unhealthy", "health", set.eph.Health)
		return nil, false
	}
	return &channel{prn: st.PRN, eph: set.eph, state: st, firstMs: first, firstTOW: firstTOW}, true
}

type observation struct {
	ch *channel
	tx float64 // satellite transmit time
	ms int
}

func (e *Engine) observe(chans []*channel, s float64) []observation {
	var out []observation
	for _, c := range chans {
		tx, k, ok := c.transmitTime(s)
		if ok {
			out = append(out, observation{ch: c, tx: tx, ms: k})
		}
	}
	return out
}

// solve computes the position and velocity at receiver time rx.
func (e *Engine) solve(obs []observation, rx, intermediateFreq float64) (core.NavigationSolution, error) {
	sats := make([][3]float64, len(obs))
	pr := make([]float64, len(obs))
	for i, o := range obs {
		dt := o.ch.eph.ClockCorrection(o.tx)
		sats[i] = o.ch.eph.Position(o.tx - dt)
		pr[i] = (rx-o.tx)*SpeedOfLight + dt*SpeedOfLight
	}

	f, err := solvePosition(sats, pr)
	if err != nil {
		return core.NavigationSolution{}, err
	}

	keep := obs
	if e.cfg.ElevationMaskDeg > 0 {
		var ks [][3]float64
		var kp []float64
		var ko []observation
		for i := range obs {
			if elevation(f.pos, sats[i]) >= e.cfg.ElevationMaskDeg {
				ks, kp, ko = append(ks, sats[i]), append(kp, pr[i]), append(ko, obs[i])
			}
		}
		if len(ko) < e.cfg.MinSatellites {
			return core.NavigationSolution{}, ErrGeometry
		}
		if len(ko) < len(obs) {
			if f, err = solvePosition(ks, kp); err != nil {
				return core.NavigationSolution{}, err
			}
			sats, keep = ks, ko
		}
	}

	vels := make([][3]float64, len(keep))
	rates := make([]float64, len(keep))
	prns := make([]int, len(keep))
	for i, o := range keep {
		t := o.tx - o.ch.eph.ClockCorrection(o.tx)
		vels[i] = o.ch.eph.Velocity(t)
		doppler := o.ch.state.CarrierFreq[o.ms] - intermediateFreq
		rates[i] = -doppler*l1Wavelength + o.ch.eph.ClockDrift(o.tx)*SpeedOfLight
		prns[i] = o.ch.prn
	}
	vel, drift, err := solveVelocity(f.pos, sats, vels, rates)
	if err != nil {
		return core.NavigationSolution{}, err
	}

	llh := ECEFToLLH(f.pos)
	week := keep[0].ch.eph.Week
	return core.NavigationSolution{
		Time:       core.GPSTime{Week: week}.Add(rx - f.bias/SpeedOfLight),
		ECEF:       f.pos,
		Position:   llh,
		VelECEF:    vel,
		Velocity:   ECEFToNED(vel, llh),
		ClockBias:  f.bias,
		ClockDrift: drift,
		GDOP:       f.gdop,
		PRNs:       prns,
	}, nil
}
