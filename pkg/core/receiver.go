// Package core holds the domain types shared between pipeline stages,
// the checkpoint store and the exporters.
package core

// Static is the fixed receiver configuration a run starts from.
type Static struct {
	IF            float64 `json:"if"`
	SamplingFreq  float64 `json:"samplingFreq"`
	ChippingRate  float64 `json:"chippingRate"`
	CodeLength    int     `json:"codeLength"`
	MsToProcess   int     `json:"msToProcess"`
	SkipBytes     int64   `json:"skipBytes"`
	DefaultFormat string  `json:"defaultFormat"`
}

// RunParameters are derived once per run and never mutated afterwards.
type RunParameters struct {
	IF             float64 `json:"if"`
	SamplingFreq   float64 `json:"samplingFreq"`
	ChippingRate   float64 `json:"chippingRate"`
	CodeLength     int     `json:"codeLength"`
	SamplesPerCode int     `json:"samplesPerCode"`
	MsToProcess    int     `json:"msToProcess"`
	SkipBytes      int64   `json:"skipBytes"`
	SourcePath     string  `json:"sourcePath"`
	FileFormat     string  `json:"fileFormat"`
}

// CodePeriod returns the duration of one spreading code period in seconds.
func (p RunParameters) CodePeriod() float64 {
	return float64(p.CodeLength) / p.ChippingRate
}
