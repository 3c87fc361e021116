package core

import "fmt"

// AcqStatus is the outcome of a satellite search. It only ever holds one of
// the two values below.
type AcqStatus string

const (
	Acquired    AcqStatus = "A"
	NotAcquired AcqStatus = "-"
)

// Valid reports whether s is one of the two known status tags.
func (s AcqStatus) Valid() bool {
	return s == Acquired || s == NotAcquired
}

// UnmarshalText rejects anything but the two known tags so a corrupted
// checkpoint can not smuggle a third state into the selector.
func (s *AcqStatus) UnmarshalText(b []byte) error {
	v := AcqStatus(b)
	if !v.Valid() {
		return fmt.Errorf("invalid acquisition status %q", string(b))
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s AcqStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid acquisition status %q", string(s))
	}
	return []byte(s), nil
}

// AcquisitionResult is the search outcome for one PRN.
type AcquisitionResult struct {
	PRN         int       `json:"prn"`
	Status      AcqStatus `json:"status"`
	SNR         float64   `json:"snr"`
	CarrierFreq float64   `json:"carrierFreq"` // Hz, IF + Doppler
	CodePhase   float64   `json:"codePhase"`   // chips
}

// Doppler returns the carrier offset from the intermediate frequency.
func (r AcquisitionResult) Doppler(intermediateFreq float64) float64 {
	return r.CarrierFreq - intermediateFreq
}

func (r AcquisitionResult) String() string {
	return fmt.Sprintf("PRN %2d %s SNR %6.2f, carrier %10.1f Hz, code phase %7.2f chips",
		r.PRN, r.Status, r.SNR, r.CarrierFreq, r.CodePhase)
}
