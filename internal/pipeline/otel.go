package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/peregrine-sdr/peregrine/internal/checkpoint"
)

const instrumentationName = "github.com/peregrine-sdr/peregrine/internal/pipeline"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	stageDuration metric.Float64Histogram
	loaded        metric.Int64Counter
	saved         metric.Int64Counter
	saveFailed    metric.Int64Counter
	state         metric.Int64ObservableGauge
}

// newMetrics creates the pipeline instruments on the global meter. They are
// no-ops unless a MeterProvider is installed.
func newMetrics(o *Orchestrator) (*metrics, error) {
	m := meter()
	ms := &metrics{}

	var err error
	ms.stageDuration, err = m.Float64Histogram(
		"pipeline.stage.duration",
		metric.WithDescription("Wall time spent in a pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage duration histogram: %w", err)
	}

	ms.loaded, err = m.Int64Counter(
		"pipeline.checkpoint.loaded",
		metric.WithDescription("Stage results restored from a checkpoint"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loaded counter: %w", err)
	}

	ms.saved, err = m.Int64Counter(
		"pipeline.checkpoint.saved",
		metric.WithDescription("Stage results written to a checkpoint"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating saved counter: %w", err)
	}

	ms.saveFailed, err = m.Int64Counter(
		"pipeline.checkpoint.save_failed",
		metric.WithDescription("Checkpoint writes that failed and were skipped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating save failure counter: %w", err)
	}

	ms.state, err = m.Int64ObservableGauge(
		"pipeline.state",
		metric.WithDescription("Current orchestrator state (0 = acquisition pending)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating state gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, obs metric.Observer) error {
			obs.ObserveInt64(ms.state, int64(o.State()))
			return nil
		},
		ms.state,
	)
	if err != nil {
		return nil, fmt.Errorf("registering state callback: %w", err)
	}

	return ms, nil
}

func stageAttr(stage checkpoint.Stage) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("stage", stage.String()))
}
