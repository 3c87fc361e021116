// Command peregrine processes a recorded GPS L1 sample file through
// acquisition, tracking and navigation, checkpointing each stage next to
// the input so later runs can resume.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/peregrine-sdr/peregrine/internal/acquisition"
	"github.com/peregrine-sdr/peregrine/internal/checkpoint"
	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/logging"
	"github.com/peregrine-sdr/peregrine/internal/navigation"
	intOtel "github.com/peregrine-sdr/peregrine/internal/otel"
	"github.com/peregrine-sdr/peregrine/internal/params"
	"github.com/peregrine-sdr/peregrine/internal/pipeline"
	"github.com/peregrine-sdr/peregrine/internal/run"
	"github.com/peregrine-sdr/peregrine/internal/selector"
	"github.com/peregrine-sdr/peregrine/internal/storage/memory"
	"github.com/peregrine-sdr/peregrine/internal/tracking"
)

const programName = "peregrine"

// BuildDate can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

var (
	_ pipeline.Acquirer  = (*acquisition.Engine)(nil)
	_ pipeline.Tracker   = (*tracking.Engine)(nil)
	_ pipeline.Navigator = (*navigation.Engine)(nil)
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the process exit status: 0 on success, 1 on a fatal
// pipeline error, 2 on a usage error.
func realMain(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	configErr := config.Load(opts.ConfigDir)
	rc := run.NewContext(opts.Source)

	logs, err := setupLogging(rc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logs.close()
	logger := logs.manager.Logger()

	logger.Info("Starting up", "version", Version, "build", BuildDate, "source", opts.Source)
	if configErr != nil {
		logger.Info("No config file loaded, using defaults", "dir", opts.ConfigDir, "error", configErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := execute(ctx, opts, rc, logs)
	if err != nil {
		reportFatal(logger, err)
		return 1
	}

	s := &sinks{
		export:    config.GetExportConfig(),
		influx:    config.GetInfluxConfig(),
		threshold: config.GetAcquisitionConfig().Threshold,
		log:       logger.With("component", "export"),
		infraLog:  logs.infra,
	}
	s.write(ctx, res, rc)

	logger.Info("Run finished",
		"state", res.State.String(),
		"satellites", len(res.Candidates),
		"solutions", len(res.Solutions),
		"elapsed", time.Since(rc.Started).Round(time.Millisecond),
	)
	return 0
}

// execute wires the checkpoint store and stage engines and runs the
// pipeline.
func execute(ctx context.Context, opts cliOptions, rc *run.Context, logs *logSetup) (*pipeline.Result, error) {
	logger := logs.manager.Logger()

	ckCfg := config.GetCheckpointConfig()
	policy, err := checkpoint.ParsePolicy(ckCfg.Validation)
	if err != nil {
		return nil, err
	}

	backend, err := createStorageBackend(ckCfg, logs.manager, logs.infra)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close checkpoint store", "error", err)
			return
		}
		if mb, ok := backend.(*memory.Backend); ok && mb.GetExportedFilePath() != "" {
			logger.Info("Memory checkpoint store exported", "path", mb.GetExportedFilePath())
		}
	}()

	store := checkpoint.New(backend, checkpoint.Options{
		Compress: ckCfg.Compress,
		Policy:   policy,
		RunID:    rc.ID.String(),
		Logger:   logger,
	})

	orch, err := pipeline.New(pipeline.Dependencies{
		Deriver:   params.NewDeriver(config.GetStatic()),
		Acquirer:  acquisition.New(acquisition.Config(config.GetAcquisitionConfig()), logger),
		Tracker:   tracking.New(tracking.Config(config.GetTrackingConfig()), logger),
		Navigator: navigation.New(navigation.Config(config.GetNavigationConfig()), logger),
		Store:     store,
		Run:       rc,
		Logger:    logger,
	}, opts.Pipeline)
	if err != nil {
		return nil, err
	}
	return orch.Run(ctx, opts.Source)
}

// reportFatal logs err at CRITICAL with a message naming the condition.
func reportFatal(logger *slog.Logger, err error) {
	var se *pipeline.StageError
	stage := "setup"
	if errors.As(err, &se) {
		stage = se.Stage.String()
	}

	msg := "Run failed"
	switch {
	case errors.Is(err, selector.ErrNoCandidates):
		msg = "No satellites acquired!"
	case errors.Is(err, checkpoint.ErrMissingCheckpoint):
		msg = fmt.Sprintf("Couldn't open %s results checkpoint", stage)
	case errors.Is(err, checkpoint.ErrStaleCheckpoint):
		msg = fmt.Sprintf("Saved %s results do not match the current run parameters", stage)
	case errors.Is(err, context.Canceled):
		msg = "Run interrupted"
	}
	logging.Critical(logger, msg, "failedStage", stage, "error", err)
}

// logSetup owns the log destinations of a run.
type logSetup struct {
	manager *logging.SlogManager
	infra   zerolog.Logger
	closers []io.Closer
	otel    *intOtel.Provider
}

func (l *logSetup) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.manager.Flush(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "log flush failed:", err)
	}
	if l.otel != nil {
		_ = l.otel.Shutdown(ctx)
	}
	for i := len(l.closers) - 1; i >= 0; i-- {
		_ = l.closers[i].Close()
	}
}

// setupLogging opens the per-run log file and builds the console, file,
// OTel and GELF sinks.
func setupLogging(rc *run.Context) (*logSetup, error) {
	l := &logSetup{manager: logging.NewSlogManager()}
	l.manager.Context = rc.LogAttrs
	level := viper.GetString("logLevel")

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path := logging.LogFilePath(logsDir, programName, rc.Started)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	logFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}
	l.closers = append(l.closers, logFile)
	l.infra = logging.NewZerolog(logFile, level)

	var startupErrs []error
	var otelLogProvider *sdklog.LoggerProvider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		l.otel, err = intOtel.New(context.Background(), intOtel.Config{
			Enabled:      true,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			startupErrs = append(startupErrs, fmt.Errorf("otel: %w", err))
			l.otel = nil
		} else {
			otelLogProvider = l.otel.LoggerProvider()
		}
	}

	var extra []slog.Handler
	graylog := config.GetGraylogConfig()
	if graylog.Enabled {
		h, closer, err := logging.NewGELFHandler(graylog.Address, level)
		if err != nil {
			startupErrs = append(startupErrs, fmt.Errorf("graylog: %w", err))
		} else {
			extra = append(extra, h)
			l.closers = append(l.closers, closer)
		}
	}

	l.manager.Setup(logFile, level, otelLogProvider, extra...)
	logger := l.manager.Logger()
	logger.Info("Logging to file", "path", path)
	for _, err := range startupErrs {
		logger.Error("Failed to initialize log sink", "error", err)
	}
	return l, nil
}
