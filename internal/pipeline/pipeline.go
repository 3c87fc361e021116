// Package pipeline sequences acquisition, candidate selection, tracking and
// navigation over one sample file, persisting each stage result so a later
// run can resume from it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/peregrine-sdr/peregrine/internal/checkpoint"
	"github.com/peregrine-sdr/peregrine/internal/params"
	"github.com/peregrine-sdr/peregrine/internal/run"
	"github.com/peregrine-sdr/peregrine/internal/samples"
	"github.com/peregrine-sdr/peregrine/internal/selector"
	"github.com/peregrine-sdr/peregrine/pkg/core"
)

// State is the orchestrator position in the stage sequence.
type State int

const (
	AcquisitionPending State = iota
	AcquisitionDone
	TrackingDone
	NavigationDone
)

func (s State) String() string {
	switch s {
	case AcquisitionPending:
		return "AcquisitionPending"
	case AcquisitionDone:
		return "AcquisitionDone"
	case TrackingDone:
		return "TrackingDone"
	case NavigationDone:
		return "NavigationDone"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SampleLoader reads a window of samples from a capture file.
type SampleLoader interface {
	Load(path string, count int, byteOffset int64, format string) ([]int8, error)
}

// LoaderFunc adapts a function such as samples.Load to SampleLoader.
type LoaderFunc func(path string, count int, byteOffset int64, format string) ([]int8, error)

func (f LoaderFunc) Load(path string, count int, byteOffset int64, format string) ([]int8, error) {
	return f(path, count, byteOffset, format)
}

type Acquirer interface {
	Acquire(ctx context.Context, p core.RunParameters, window []int8) ([]core.AcquisitionResult, error)
}

type Tracker interface {
	Track(ctx context.Context, p core.RunParameters, window []int8, candidates []core.AcquisitionResult, ms int) (core.TrackState, error)
}

type Navigator interface {
	Navigate(ctx context.Context, state core.TrackState, p core.RunParameters) ([]core.NavigationSolution, error)
}

// StageError attributes a fatal failure to the stage that produced it.
type StageError struct {
	Stage checkpoint.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options carry the per-run directives.
type Options struct {
	// SkipAcquisition resumes acquisition from its checkpoint.
	SkipAcquisition bool
	// SkipTracking resumes tracking from its checkpoint.
	SkipTracking bool
	// SkipNavigation omits the navigation stage.
	SkipNavigation bool
	// Format is the sample file format tag. Empty uses the static default.
	Format string
}

// Dependencies are the collaborators an Orchestrator drives. Run is
// optional; when set, stage transitions are mirrored into it for logging.
type Dependencies struct {
	Deriver   *params.Deriver
	Loader    SampleLoader
	Acquirer  Acquirer
	Tracker   Tracker
	Navigator Navigator
	Store     *checkpoint.Store
	Run       *run.Context
	Logger    *slog.Logger
}

// Result holds everything a run produced or restored.
type Result struct {
	Params      core.RunParameters
	State       State
	Acquisition []core.AcquisitionResult
	Candidates  []core.AcquisitionResult
	Tracking    core.TrackState
	Solutions   []core.NavigationSolution
}

// Orchestrator runs the stage state machine. It is not safe for concurrent
// Run calls; separate runs against the same input must be serialized by the
// caller.
type Orchestrator struct {
	deps    Dependencies
	opts    Options
	log     *slog.Logger
	metrics *metrics

	mu    sync.RWMutex
	state State
}

// New creates an Orchestrator. A nil Loader uses samples.Load.
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Deriver == nil:
		return nil, errors.New("pipeline: deriver is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: checkpoint store is required")
	case deps.Acquirer == nil, deps.Tracker == nil, deps.Navigator == nil:
		return nil, errors.New("pipeline: all stage engines are required")
	}
	if deps.Loader == nil {
		deps.Loader = LoaderFunc(samples.Load)
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	o := &Orchestrator{
		deps: deps,
		opts: opts,
		log:  log.With("component", "pipeline"),
	}
	m, err := newMetrics(o)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) advance(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.log.Debug("Pipeline state changed", "state", s.String())
}

func (o *Orchestrator) enter(stage checkpoint.Stage) {
	if o.deps.Run != nil {
		o.deps.Run.SetStage(stage.String())
	}
}

// Run processes source. Fatal conditions are returned as *StageError; the
// caller decides how to report them. Checkpoint write failures are logged
// and never returned.
func (o *Orchestrator) Run(ctx context.Context, source string) (*Result, error) {
	o.advance(AcquisitionPending)
	p := o.deps.Deriver.Derive(source, o.opts.Format)
	res := &Result{Params: p}
	o.log.Info("Starting run",
		"source", p.SourcePath,
		"format", p.FileFormat,
		"samplesPerCode", p.SamplesPerCode,
		"msToProcess", p.MsToProcess,
	)

	acq, err := o.acquisition(ctx, p)
	if err != nil {
		return res, &StageError{Stage: checkpoint.StageAcquisition, Err: err}
	}
	res.Acquisition = acq

	candidates, err := selector.Select(acq)
	if err != nil {
		return res, &StageError{Stage: checkpoint.StageAcquisition, Err: err}
	}
	res.Candidates = candidates
	o.log.Info("Selected candidates", "count", len(candidates), "prns", prnList(candidates))
	o.advance(AcquisitionDone)

	state, err := o.tracking(ctx, p, candidates)
	if err != nil {
		return res, &StageError{Stage: checkpoint.StageTracking, Err: err}
	}
	res.Tracking = state
	o.advance(TrackingDone)

	if o.opts.SkipNavigation {
		o.log.Info("Skipping navigation")
	} else {
		sols, err := o.navigation(ctx, p, state)
		if err != nil {
			return res, &StageError{Stage: checkpoint.StageNavigation, Err: err}
		}
		res.Solutions = sols
	}
	o.advance(NavigationDone)
	res.State = NavigationDone
	return res, nil
}

func (o *Orchestrator) acquisition(ctx context.Context, p core.RunParameters) ([]core.AcquisitionResult, error) {
	stage := checkpoint.StageAcquisition
	o.enter(stage)
	defer o.timeStage(ctx, stage)()

	if o.opts.SkipAcquisition {
		o.log.Info("Skipping acquisition, loading saved acquisition results",
			"path", o.deps.Store.Locate(stage, p.SourcePath))
		results, err := o.deps.Store.LoadAcquisition(ctx, p)
		if err != nil {
			return nil, err
		}
		o.metrics.loaded.Add(ctx, 1, stageAttr(stage))
		return results, nil
	}

	buf, err := o.window(p, params.AcquisitionWindow(p))
	if err != nil {
		return nil, err
	}
	results, err := o.deps.Acquirer.Acquire(ctx, p, buf)
	if err != nil {
		return nil, fmt.Errorf("acquisition failed: %w", err)
	}
	o.save(ctx, stage, p, func() error {
		return o.deps.Store.SaveAcquisition(ctx, p, results)
	})
	return results, nil
}

func (o *Orchestrator) tracking(ctx context.Context, p core.RunParameters, candidates []core.AcquisitionResult) (core.TrackState, error) {
	stage := checkpoint.StageTracking
	o.enter(stage)
	defer o.timeStage(ctx, stage)()

	if o.opts.SkipTracking {
		o.log.Info("Skipping tracking, loading saved tracking results",
			"path", o.deps.Store.Locate(stage, p.SourcePath))
		state, err := o.deps.Store.LoadTracking(ctx, p)
		if err != nil {
			return core.TrackState{}, err
		}
		o.metrics.loaded.Add(ctx, 1, stageAttr(stage))
		return state, nil
	}

	buf, err := o.window(p, params.TrackingWindow(p))
	if err != nil {
		return core.TrackState{}, err
	}
	state, err := o.deps.Tracker.Track(ctx, p, buf, candidates, p.MsToProcess)
	if err != nil {
		return core.TrackState{}, fmt.Errorf("tracking failed: %w", err)
	}
	o.save(ctx, stage, p, func() error {
		return o.deps.Store.SaveTracking(ctx, p, state)
	})
	return state, nil
}

func (o *Orchestrator) navigation(ctx context.Context, p core.RunParameters, state core.TrackState) ([]core.NavigationSolution, error) {
	stage := checkpoint.StageNavigation
	o.enter(stage)
	defer o.timeStage(ctx, stage)()

	sols, err := o.deps.Navigator.Navigate(ctx, state, p)
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	o.log.Info("Navigation finished", "solutions", len(sols))
	o.save(ctx, stage, p, func() error {
		return o.deps.Store.SaveNavigation(ctx, p, core.Records(sols))
	})
	return sols, nil
}

// window loads count samples at the run's byte offset. A file that ends
// early is accepted while it still holds one full code period.
func (o *Orchestrator) window(p core.RunParameters, count int) ([]int8, error) {
	buf, err := o.deps.Loader.Load(p.SourcePath, count, p.SkipBytes, p.FileFormat)
	switch {
	case errors.Is(err, samples.ErrShortRead) && len(buf) >= p.SamplesPerCode:
		o.log.Warn("Sample file shorter than requested window, continuing with partial data",
			"requested", count,
			"loaded", len(buf),
		)
		return buf, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load %d samples from %s: %w", count, p.SourcePath, err)
	}
	return buf, nil
}

func (o *Orchestrator) save(ctx context.Context, stage checkpoint.Stage, p core.RunParameters, write func() error) {
	loc := o.deps.Store.Locate(stage, p.SourcePath)
	if err := write(); err != nil {
		o.metrics.saveFailed.Add(ctx, 1, stageAttr(stage))
		o.log.Warn("Couldn't save checkpoint", "stage", stage.String(), "path", loc, "error", err)
		return
	}
	o.metrics.saved.Add(ctx, 1, stageAttr(stage))
	o.log.Debug("Saved checkpoint", "stage", stage.String(), "path", loc)
}

func (o *Orchestrator) timeStage(ctx context.Context, stage checkpoint.Stage) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		o.metrics.stageDuration.Record(ctx, elapsed.Seconds(), stageAttr(stage))
		o.log.Debug("Stage finished", "stage", stage.String(), "elapsed", elapsed)
	}
}

func prnList(results []core.AcquisitionResult) []int {
	prns := make([]int, len(results))
	for i, r := range results {
		prns[i] = r.PRN
	}
	return prns
}
