package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// LevelCritical marks failures that terminate the run.
const LevelCritical = slog.Level(12)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger  *slog.Logger
	console io.Writer

	// Context supplies per-record attributes (run id, stage). Optional.
	Context ContextProvider

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager writing its
// console output to stdout.
func NewSlogManager() *SlogManager {
	return &SlogManager{console: os.Stdout}
}

// SetConsole redirects console output. A nil writer disables it.
func (m *SlogManager) SetConsole(w io.Writer) {
	m.console = w
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "CRITICAL":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
			a.Value = slog.StringValue("CRITICAL")
		}
	}
	return a
}

// Setup initializes the logging system with console, file and optional OTel
// output. If provider is nil, OTel logging is disabled. Extra handlers (for
// example GELF) receive every record as well.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	lvl := ParseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceAttr,
	}

	var handlers []slog.Handler

	if m.console != nil {
		handlers = append(handlers, slog.NewTextHandler(m.console, handlerOpts))
	}

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler("peregrine", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	handlers = append(handlers, extra...)

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.Context != nil {
		h = NewContextHandler(h, m.Context)
	}

	m.logger = slog.New(h)
	m.logger.Debug("Logging initialized", "level", level)
}

// HandlerOptions returns options matching the ones Setup uses, for handlers
// built outside the manager.
func HandlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{Level: ParseLevel(level), ReplaceAttr: replaceAttr}
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), ParseLevel(level), data, "function", functionName)
}

// Critical logs msg at LevelCritical.
func Critical(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelCritical, msg, args...)
}
