// Package params derives the immutable per-run receiver parameters.
package params

import (
	"math"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

const (
	// AcquisitionCodePeriods is the acquisition window length in code periods.
	AcquisitionCodePeriods = 11
	// TrackingGuardMs is added to the tracking window for loop settling.
	TrackingGuardMs = 22
)

// Deriver builds RunParameters from a fixed static configuration.
type Deriver struct {
	static core.Static
}

func NewDeriver(static core.Static) *Deriver {
	return &Deriver{static: static}
}

// Derive returns the parameters for one run over source. An empty format
// selects the configured default.
func (d *Deriver) Derive(source, format string) core.RunParameters {
	s := d.static
	if format == "" {
		format = s.DefaultFormat
	}
	return core.RunParameters{
		IF:             s.IF,
		SamplingFreq:   s.SamplingFreq,
		ChippingRate:   s.ChippingRate,
		CodeLength:     s.CodeLength,
		SamplesPerCode: SamplesPerCode(s.SamplingFreq, s.ChippingRate, s.CodeLength),
		MsToProcess:    s.MsToProcess,
		SkipBytes:      s.SkipBytes,
		SourcePath:     source,
		FileFormat:     format,
	}
}

// SamplesPerCode is round(fs / (chipRate / codeLength)), halves rounded away
// from zero.
func SamplesPerCode(samplingFreq, chippingRate float64, codeLength int) int {
	return int(math.Round(samplingFreq / (chippingRate / float64(codeLength))))
}

// AcquisitionWindow is the number of samples read for acquisition.
func AcquisitionWindow(p core.RunParameters) int {
	return AcquisitionCodePeriods * p.SamplesPerCode
}

// TrackingWindow is the number of samples read for tracking.
func TrackingWindow(p core.RunParameters) int {
	return int(p.SamplingFreq * 1e-3 * float64(p.MsToProcess+TrackingGuardMs))
}
