package checkpoint

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// EnvelopeVersion is bumped on incompatible payload changes.
const EnvelopeVersion = 1

// Envelope wraps a stage result with the metadata needed to validate it.
type Envelope struct {
	Version     int             `json:"version"`
	Stage       Stage           `json:"stage"`
	Source      string          `json:"source"`
	Fingerprint string          `json:"fingerprint"`
	RunID       string          `json:"runId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Payload     json.RawMessage `json:"payload"`
}

var gzipMagic = []byte{0x1f, 0x8b}

func encodeEnvelope(env Envelope, compress bool) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to compress envelope: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeEnvelope accepts compressed and plain encodings.
func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	raw := data
	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return env, err
		}
		defer gz.Close()
		if raw, err = io.ReadAll(gz); err != nil {
			return env, err
		}
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	if env.Version != EnvelopeVersion {
		return env, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	return env, nil
}

// fingerprintInput lists the parameters a stage result depends on.
type fingerprintInput struct {
	Stage          Stage   `json:"stage"`
	IF             float64 `json:"if"`
	SamplingFreq   float64 `json:"samplingFreq"`
	ChippingRate   float64 `json:"chippingRate"`
	CodeLength     int     `json:"codeLength"`
	SamplesPerCode int     `json:"samplesPerCode"`
	SkipBytes      int64   `json:"skipBytes"`
	FileFormat     string  `json:"fileFormat"`
	MsToProcess    int     `json:"msToProcess,omitempty"`
}

// Fingerprint hashes the run parameters that affect stage's result.
// Acquisition does not depend on the processing duration.
func Fingerprint(stage Stage, p core.RunParameters) string {
	in := fingerprintInput{
		Stage:          stage,
		IF:             p.IF,
		SamplingFreq:   p.SamplingFreq,
		ChippingRate:   p.ChippingRate,
		CodeLength:     p.CodeLength,
		SamplesPerCode: p.SamplesPerCode,
		SkipBytes:      p.SkipBytes,
		FileFormat:     p.FileFormat,
	}
	if stage != StageAcquisition {
		in.MsToProcess = p.MsToProcess
	}
	raw, _ := json.Marshal(in)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
