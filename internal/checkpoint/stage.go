package checkpoint

import "fmt"

// Stage names a pipeline stage whose result can be checkpointed.
type Stage string

const (
	StageAcquisition Stage = "acquisition"
	StageTracking    Stage = "tracking"
	StageNavigation  Stage = "navigation"
)

var suffixes = map[Stage]string{
	StageAcquisition: "acq_results",
	StageTracking:    "track_results",
	StageNavigation:  "nav_results",
}

// Suffix is the per-stage name appended to the source path.
func (s Stage) Suffix() string {
	return suffixes[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := suffixes[s]
	return ok
}

func (s Stage) String() string {
	return string(s)
}

// Policy decides what happens when a checkpoint was produced with different
// run parameters than the current run.
type Policy string

const (
	PolicyOff    Policy = "off"
	PolicyWarn   Policy = "warn"
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name. Empty selects PolicyOff.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyOff:
		return PolicyOff, nil
	case PolicyWarn, PolicyStrict:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("invalid checkpoint validation policy %q (want off, warn or strict)", s)
	}
}
