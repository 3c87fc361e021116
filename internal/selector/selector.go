// Package selector picks the satellites worth tracking from an acquisition run.
package selector

import (
	"errors"
	"sort"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// ErrNoCandidates is returned when no searched satellite was acquired.
var ErrNoCandidates = errors.New("no satellites acquired")

// Select keeps the acquired results ordered by SNR, strongest first. Results
// with equal SNR keep their input order. The input slice is not modified.
func Select(results []core.AcquisitionResult) ([]core.AcquisitionResult, error) {
	out := make([]core.AcquisitionResult, 0, len(results))
	for _, r := range results {
		if r.Status == core.Acquired {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoCandidates
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SNR > out[j].SNR
	})
	return out, nil
}
