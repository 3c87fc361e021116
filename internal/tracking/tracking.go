// Package tracking follows acquired GPS L1 C/A signals through a sample
// window with a delay lock loop on the code and an FLL assisted Costas
// phase lock loop on the carrier.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/peregrine-sdr/peregrine/internal/cacode"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// L1 is the GPS L1 carrier frequency in Hz.
const L1 = 1575.42e6

const (
	pllDamping = 0.7
	pllGain    = 0.25
	dllDamping = 0.7
	dllGain    = 1.0
	// fllPullInMs is how long the frequency loop assists the PLL.
	fllPullInMs = 500
	// progressEveryMs sets how often long channels report progress.
	progressEveryMs = 5000
)

// ErrNoSamples is returned when the window ends before the first code period
// of any channel.
var ErrNoSamples = errors.New("tracking window holds no complete code period")

// Config tunes the loops.
type Config struct {
	DLLBandwidth      float64 // Hz
	PLLBandwidth      float64 // Hz
	FLLBandwidth      float64 // Hz, zero disables frequency assist
	CorrelatorSpacing float64 // chips between early and prompt
}

// Engine tracks acquired satellites.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New creates a tracking engine.
func New(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CorrelatorSpacing <= 0 {
		cfg.CorrelatorSpacing = 0.5
	}
	return &Engine{cfg: cfg, log: log.With("component", "tracking")}
}

// Track runs every candidate for up to ms code periods. Channels keep the
// order of candidates. A channel whose signal runs past the end of the
// window stops early with fewer epochs.
func (e *Engine) Track(ctx context.Context, p core.RunParameters, samples []int8, candidates []core.AcquisitionResult, ms int) (core.TrackState, error) {
	state := core.TrackState{
		SamplingFreq: p.SamplingFreq,
		MsTracked:    ms,
		Channels:     make([]core.ChannelState, 0, len(candidates)),
	}

	tracked := false
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return core.TrackState{}, err
		}
		ch, err := e.trackChannel(ctx, p, samples, cand, ms)
		if err != nil {
			return core.TrackState{}, fmt.Errorf("PRN %d: %w", cand.PRN, err)
		}
		if ch.Len() > 0 {
			tracked = true
		}
		state.Channels = append(state.Channels, ch)
	}
	if len(candidates) > 0 && !tracked {
		return core.TrackState{}, ErrNoSamples
	}
	return state, nil
}

func (e *Engine) trackChannel(ctx context.Context, p core.RunParameters, samples []int8, cand core.AcquisitionResult, ms int) (core.ChannelState, error) {
	code, err := cacode.Generate(cand.PRN)
	if err != nil {
		return core.ChannelState{}, err
	}

	log := e.log.With("prn", cand.PRN)
	ch := core.NewChannelState(cand.PRN, cand.SNR, ms)

	codeLen := float64(len(code))
	pdi := p.CodePeriod()
	spacing := e.cfg.CorrelatorSpacing

	pll := newLoopFilter(e.cfg.PLLBandwidth, pllDamping, pllGain, pdi)
	dll := newLoopFilter(e.cfg.DLLBandwidth, dllDamping, dllGain, pdi)
	fllGain := 4 * e.cfg.FLLBandwidth * pdi
	var lock lockDetector

	carrBasis := cand.CarrierFreq
	carrFreq := carrBasis
	codeFreq := p.ChippingRate
	remCarr := 0.0 // radians
	remCode := 0.0 // chips
	carrCycles := 0.0
	prevI, prevQ := 0.0, 0.0

	pos := int(math.Round(cand.CodePhase * p.SamplingFreq / p.ChippingRate))

	for epoch := 0; epoch < ms; epoch++ {
		if epoch%progressEveryMs == 0 && epoch > 0 {
			if err := ctx.Err(); err != nil {
				return core.ChannelState{}, err
			}
			log.Debug("Tracking progress", "ms", epoch, "of", ms)
		}

		step := codeFreq / p.SamplingFreq
		blk := int(math.Ceil((codeLen - remCode) / step))
		if blk <= 0 || pos+blk > len(samples) {
			log.Warn("Sample window exhausted", "ms", epoch, "requested", ms)
			break
		}
		codeStart := float64(pos) - remCode/step

		var ie, qe, ip, qp, il, ql float64
		w := 2 * math.Pi * carrFreq / p.SamplingFreq
		osc := complex(math.Cos(remCarr), math.Sin(remCarr))
		rot := complex(math.Cos(w), math.Sin(w))
		for k, v := range samples[pos : pos+blk] {
			s := float64(v)
			bi := s * real(osc)
			bq := -s * imag(osc)
			osc *= rot

			ph := remCode + float64(k)*step
			ce := chip(code, ph+spacing)
			cp := chip(code, ph)
			cl := chip(code, ph-spacing)
			ie += ce * bi
			qe += ce * bq
			ip += cp * bi
			qp += cp * bq
			il += cl * bi
			ql += cl * bq
		}

		remCarr = math.Mod(remCarr+w*float64(blk), 2*math.Pi)
		carrCycles += carrFreq * float64(blk) / p.SamplingFreq
		remCode += float64(blk)*step - codeLen
		pos += blk

		if e.cfg.FLLBandwidth > 0 && epoch > 0 && epoch < fllPullInMs {
			carrBasis += fllGain * freqDiscriminator(prevI, prevQ, ip, qp, pdi)
		}
		carrFreq = carrBasis + pll.update(costas(ip, qp))

		codeErr := earlyMinusLate(ie, qe, il, ql)
		codeFreq = p.ChippingRate + dll.update(codeErr) +
			(carrFreq-p.IF)*p.ChippingRate/L1

		lock.add(ip, qp)
		prevI, prevQ = ip, qp

		ch.Append(core.TrackEpoch{
			CarrierPhase: carrCycles,
			CarrierFreq:  carrFreq,
			CodePhase:    remCode,
			CodeFreq:     codeFreq,
			CodeStart:    codeStart,
			IE:           ie,
			IP:           ip,
			IL:           il,
			QE:           qe,
			QP:           qp,
			QL:           ql,
			PLLLock:      lock.pllLock(),
			CN0:          lock.cn0Estimate(pdi),
		})
	}

	if n := ch.Len(); n > 0 {
		last := ch.Epoch(n - 1)
		log.Info("Channel tracked", "ms", n, "doppler", last.CarrierFreq-p.IF,
			"cn0", last.CN0, "pllLock", last.PLLLock)
	}
	return ch, nil
}

// chip returns the code value at a fractional chip phase, wrapping in both
// directions.
func chip(code []int8, phase float64) float64 {
	n := len(code)
	i := int(math.Floor(phase)) % n
	if i < 0 {
		i += n
	}
	return float64(code[i])
}
