// Package checkpoint persists stage results so a later run can resume from
// them. Each (stage, source) pair maps to one storage key; whether a value
// exists under that key is the resume signal.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/peregrine-sdr/peregrine/internal/storage"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

var (
	// ErrMissingCheckpoint means nothing was saved for the stage and source.
	ErrMissingCheckpoint = errors.New("missing checkpoint")
	// ErrStaleCheckpoint means the checkpoint was produced with different run
	// parameters and the strict policy rejected it.
	ErrStaleCheckpoint = errors.New("stale checkpoint")
	// ErrCorruptCheckpoint means the stored value could not be decoded.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")
)

// Options configure a Store.
type Options struct {
	Compress bool
	Policy   Policy
	RunID    string
	Logger   *slog.Logger
}

// Store is the typed checkpoint store over a storage backend.
type Store struct {
	backend storage.Backend
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(backend storage.Backend, opts Options) *Store {
	if opts.Policy == "" {
		opts.Policy = PolicyOff
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		backend: backend,
		opts:    opts,
		log:     log.With("component", "checkpoint"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Key returns the storage key for stage over source.
func Key(stage Stage, source string) storage.Key {
	return storage.Key{Source: source, Name: stage.Suffix()}
}

// Locate describes where the checkpoint for stage lives, for log messages.
func (s *Store) Locate(stage Stage, source string) string {
	key := Key(stage, source)
	if l, ok := s.backend.(storage.Locator); ok {
		return l.Locate(key)
	}
	return key.String()
}

// Exists reports whether a checkpoint for stage is stored.
func (s *Store) Exists(ctx context.Context, stage Stage, source string) (bool, error) {
	return s.backend.Exists(ctx, Key(stage, source))
}

// Save serializes result under (stage, p.SourcePath).
func (s *Store) Save(ctx context.Context, stage Stage, p core.RunParameters, result any) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown stage %q", stage)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal %s result: %w", stage, err)
	}

	env := Envelope{
		Version:     EnvelopeVersion,
		Stage:       stage,
		Source:      p.SourcePath,
		Fingerprint: Fingerprint(stage, p),
		RunID:       s.opts.RunID,
		CreatedAt:   s.now(),
		Payload:     payload,
	}
	data, err := encodeEnvelope(env, s.opts.Compress)
	if err != nil {
		return err
	}

	encoding := "json"
	if s.opts.Compress {
		encoding = "json+gzip"
	}
	labels := map[string]string{
		"stage":       string(stage),
		"fingerprint": env.Fingerprint,
		"encoding":    encoding,
	}
	if s.opts.RunID != "" {
		labels["run_id"] = s.opts.RunID
	}

	if err := s.backend.Put(ctx, Key(stage, p.SourcePath), data, labels); err != nil {
		return fmt.Errorf("failed to save %s checkpoint %s: %w", stage, s.Locate(stage, p.SourcePath), err)
	}
	return nil
}

// Load decodes the checkpoint for (stage, p.SourcePath) into out. It returns
// ErrMissingCheckpoint when none exists.
func (s *Store) Load(ctx context.Context, stage Stage, p core.RunParameters, out any) error {
	loc := s.Locate(stage, p.SourcePath)
	data, err := s.backend.Get(ctx, Key(stage, p.SourcePath))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s checkpoint %s", ErrMissingCheckpoint, stage, loc)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s checkpoint %s: %w", stage, loc, err)
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptCheckpoint, loc, err)
	}
	if env.Stage != stage {
		return fmt.Errorf("%w: %s holds %s result, want %s", ErrCorruptCheckpoint, loc, env.Stage, stage)
	}

	if err := s.checkFingerprint(stage, p, env, loc); err != nil {
		return err
	}

	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrCorruptCheckpoint, loc, err)
	}
	return nil
}

func (s *Store) checkFingerprint(stage Stage, p core.RunParameters, env Envelope, loc string) error {
	want := Fingerprint(stage, p)
	if s.opts.Policy == PolicyOff || env.Fingerprint == want {
		return nil
	}
	if s.opts.Policy == PolicyStrict {
		return fmt.Errorf("%w: %s checkpoint %s was produced with different run parameters", ErrStaleCheckpoint, stage, loc)
	}
	s.log.Warn("Checkpoint was produced with different run parameters",
		"stage", stage.String(),
		"path", loc,
		"createdAt", env.CreatedAt,
		"runId", env.RunID,
	)
	return nil
}

// SaveAcquisition persists acquisition results verbatim.
func (s *Store) SaveAcquisition(ctx context.Context, p core.RunParameters, results []core.AcquisitionResult) error {
	return s.Save(ctx, StageAcquisition, p, results)
}

func (s *Store) LoadAcquisition(ctx context.Context, p core.RunParameters) ([]core.AcquisitionResult, error) {
	var results []core.AcquisitionResult
	if err := s.Load(ctx, StageAcquisition, p, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) SaveTracking(ctx context.Context, p core.RunParameters, state core.TrackState) error {
	return s.Save(ctx, StageTracking, p, state)
}

func (s *Store) LoadTracking(ctx context.Context, p core.RunParameters) (core.TrackState, error) {
	var state core.TrackState
	err := s.Load(ctx, StageTracking, p, &state)
	return state, err
}

// SaveNavigation persists the (time, position, velocity) records in order.
func (s *Store) SaveNavigation(ctx context.Context, p core.RunParameters, records []core.NavRecord) error {
	return s.Save(ctx, StageNavigation, p, records)
}

// LoadNavigation reads navigation records back. The pipeline never does;
// it exists for tooling and tests.
func (s *Store) LoadNavigation(ctx context.Context, p core.RunParameters) ([]core.NavRecord, error) {
	var records []core.NavRecord
	if err := s.Load(ctx, StageNavigation, p, &records); err != nil {
		return nil, err
	}
	return records, nil
}
