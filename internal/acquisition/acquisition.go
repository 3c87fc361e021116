// Package acquisition searches a short sample window for GPS L1 C/A signals
// with an FFT based parallel code-phase search.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/peregrine-sdr/peregrine/internal/cacode"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// ErrShortWindow is returned when fewer samples than one code period are given.
var ErrShortWindow = errors.New("acquisition window shorter than one code period")

// fineFreqPeriods is the number of code periods used for fine frequency
// estimation.
const fineFreqPeriods = 10

// Config tunes the search.
type Config struct {
	PRNs        []int
	Threshold   float64 // peak to mean ratio required for a detection
	Bandwidth   float64 // Hz, searched symmetrically around the IF
	Step        float64 // Hz, Doppler bin width
	NonCoherent int     // 1 ms blocks summed non-coherently
	FineFreq    bool
}

// Engine runs acquisition.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New creates an acquisition engine.
func New(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.NonCoherent < 1 {
		cfg.NonCoherent = 1
	}
	if cfg.Step <= 0 {
		cfg.Step = 500
	}
	return &Engine{cfg: cfg, log: log.With("component", "acquisition")}
}

// Dopplers returns the searched Doppler bins in Hz.
func (e *Engine) Dopplers() []float64 {
	n := int(math.Floor(e.cfg.Bandwidth/e.cfg.Step + 1e-9))
	out := make([]float64, 0, 2*n+1)
	for i := -n; i <= n; i++ {
		out = append(out, float64(i)*e.cfg.Step)
	}
	return out
}

// Acquire returns one result per configured PRN, in configuration order.
func (e *Engine) Acquire(ctx context.Context, p core.RunParameters, samples []int8) ([]core.AcquisitionResult, error) {
	n := p.SamplesPerCode
	if n <= 0 || len(samples) < n {
		return nil, fmt.Errorf("%w: have %d samples, need %d", ErrShortWindow, len(samples), n)
	}

	blocks := e.cfg.NonCoherent
	if avail := len(samples) / n; blocks > avail {
		blocks = avail
	}

	s := newSearch(p, samples, blocks, e.Dopplers())

	results := make([]core.AcquisitionResult, 0, len(e.cfg.PRNs))
	for _, prn := range e.cfg.PRNs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code, err := cacode.Generate(prn)
		if err != nil {
			return nil, err
		}

		peak := s.run(code)
		res := core.AcquisitionResult{
			PRN:         prn,
			Status:      core.NotAcquired,
			SNR:         peak.snr,
			CarrierFreq: p.IF + peak.doppler,
			CodePhase:   float64(peak.index) * p.ChippingRate / p.SamplingFreq,
		}
		if peak.snr >= e.cfg.Threshold {
			res.Status = core.Acquired
			if e.cfg.FineFreq {
				res.CarrierFreq = e.fineFrequency(p, samples, code, peak.index, res.CarrierFreq)
			}
		}
		e.log.Debug("Searched PRN", "prn", prn, "snr", res.SNR, "status", string(res.Status),
			"doppler", res.Doppler(p.IF), "codePhase", res.CodePhase)
		results = append(results, res)
	}

	acquired := 0
	for _, r := range results {
		if r.Status == core.Acquired {
			acquired++
		}
	}
	e.log.Info("Acquisition finished", "searched", len(results), "acquired", acquired)
	return results, nil
}

type peak struct {
	snr     float64
	doppler float64
	index   int
}

// search holds the per-window state shared by all PRNs: the FFT plan and the
// spectra of the carrier-wiped blocks for every Doppler bin.
type search struct {
	n        int
	fft      *fourier.CmplxFFT
	dopplers []float64
	// spectra[bin][block] is the FFT of the carrier-wiped block
	spectra [][][]complex128
	params  core.RunParameters
}

func newSearch(p core.RunParameters, samples []int8, blocks int, dopplers []float64) *search {
	n := p.SamplesPerCode
	s := &search{
		n:        n,
		fft:      fourier.NewCmplxFFT(n),
		dopplers: dopplers,
		spectra:  make([][][]complex128, len(dopplers)),
		params:   p,
	}

	wiped := make([]complex128, n)
	for bi, dop := range dopplers {
		w := -2 * math.Pi * (p.IF + dop) / p.SamplingFreq
		s.spectra[bi] = make([][]complex128, blocks)
		for k := 0; k < blocks; k++ {
			block := samples[k*n : (k+1)*n]
			for i, v := range block {
				wiped[i] = complex(float64(v), 0) * cmplx.Rect(1, w*float64(i))
			}
			s.spectra[bi][k] = s.fft.Coefficients(nil, wiped)
		}
	}
	return s
}

// run correlates code against every Doppler bin and returns the strongest
// cell. SNR is the peak power over the mean power of its Doppler bin.
func (s *search) run(code []int8) peak {
	local := cacode.Sample(code, s.params.ChippingRate, s.params.SamplingFreq, s.n, 0)
	lc := make([]complex128, s.n)
	for i, v := range local {
		lc[i] = complex(v, 0)
	}
	codeSpec := s.fft.Coefficients(nil, lc)
	for i := range codeSpec {
		codeSpec[i] = cmplx.Conj(codeSpec[i])
	}

	best := peak{snr: 0}
	bestPower := -1.0
	power := make([]float64, s.n)
	prod := make([]complex128, s.n)
	corr := make([]complex128, s.n)

	for bi := range s.dopplers {
		clear(power)
		for _, spec := range s.spectra[bi] {
			for i := range prod {
				prod[i] = spec[i] * codeSpec[i]
			}
			s.fft.Sequence(corr, prod)
			for i, c := range corr {
				power[i] += real(c)*real(c) + imag(c)*imag(c)
			}
		}

		idx, top, sum := 0, 0.0, 0.0
		for i, v := range power {
			sum += v
			if v > top {
				idx, top = i, v
			}
		}
		if top > bestPower {
			bestPower = top
			mean := sum / float64(s.n)
			snr := 0.0
			if mean > 0 {
				snr = top / mean
			}
			best = peak{snr: snr, doppler: s.dopplers[bi], index: idx}
		}
	}
	return best
}

// fineFrequency refines the carrier estimate from the spectrum of up to ten
// code-wiped periods, searching one Doppler bin either side of coarse.
func (e *Engine) fineFrequency(p core.RunParameters, samples []int8, code []int8, start int, coarse float64) float64 {
	periods := (len(samples) - start) / p.SamplesPerCode
	if periods > fineFreqPeriods {
		periods = fineFreqPeriods
	}
	if periods < 2 {
		return coarse
	}
	length := periods * p.SamplesPerCode

	m := 1
	for m < 4*length {
		m <<= 1
	}
	local := cacode.Sample(code, p.ChippingRate, p.SamplingFreq, length, 0)
	seq := make([]float64, m)
	for i := 0; i < length; i++ {
		seq[i] = float64(samples[start+i]) * local[i]
	}

	fft := fourier.NewFFT(m)
	coeff := fft.Coefficients(nil, seq)

	lo := int(math.Floor((coarse - e.cfg.Step) / p.SamplingFreq * float64(m)))
	hi := int(math.Ceil((coarse + e.cfg.Step) / p.SamplingFreq * float64(m)))
	if lo < 1 {
		lo = 1
	}
	if hi > len(coeff)-1 {
		hi = len(coeff) - 1
	}

	bestI, bestP := -1, -1.0
	for i := lo; i <= hi; i++ {
		pw := real(coeff[i])*real(coeff[i]) + imag(coeff[i])*imag(coeff[i])
		if pw > bestP {
			bestI, bestP = i, pw
		}
	}
	if bestI < 0 {
		return coarse
	}
	return fft.Freq(bestI) * p.SamplingFreq
}
