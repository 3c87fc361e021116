package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func newQuietManager() *SlogManager {
	m := NewSlogManager()
	m.SetConsole(nil)
	return m
}

func TestSetup_ConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := NewSlogManager()
	m.SetConsole(&console)
	m.Setup(&file, "info", nil)
	m.Logger().Info("acquisition started")

	assert.Contains(t, console.String(), "acquisition started")
	assert.Contains(t, file.String(), "acquisition started")
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	m := newQuietManager()
	m.Setup(&buf, "warn", nil)

	m.Logger().Info("dropped")
	m.Logger().Warn("checkpoint save failed")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "checkpoint save failed")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := newQuietManager()

	m.Setup(&buf1, "info", nil)
	m.Logger().Info("first")
	m.Setup(&buf2, "info", nil)
	m.Logger().Info("second")

	assert.NotContains(t, buf1.String(), "second")
	assert.Contains(t, buf2.String(), "second")
}

func TestCritical_RendersLevelName(t *testing.T) {
	var buf bytes.Buffer
	m := newQuietManager()
	m.Setup(&buf, "info", nil)

	Critical(m.Logger(), "no satellites acquired")

	out := buf.String()
	assert.Contains(t, out, "level=CRITICAL")
	assert.Contains(t, out, "no satellites acquired")
}

func TestSetup_ContextProvider(t *testing.T) {
	var buf bytes.Buffer
	m := newQuietManager()
	m.Context = func() []slog.Attr {
		return []slog.Attr{slog.String("stage", "tracking")}
	}
	m.Setup(&buf, "info", nil)

	m.Logger().Info("tick")
	assert.Contains(t, buf.String(), "stage=tracking")
}

func TestSetup_ExtraHandler(t *testing.T) {
	var file, extra bytes.Buffer
	m := newQuietManager()
	m.Setup(&file, "info", nil, slog.NewJSONHandler(&extra, HandlerOptions("info")))

	m.Logger().Info("fan", "prn", 7)
	assert.Contains(t, extra.String(), `"prn":7`)
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestFlush(t *testing.T) {
	m := newQuietManager()
	require.NoError(t, m.Flush(context.Background()))

	m.Setup(&bytes.Buffer{}, "info", sdklog.NewLoggerProvider())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestWriteLog(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "critical", "bogus"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := newQuietManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("saveCheckpoint", level+" message", level)
			assert.Contains(t, buf.String(), level+" message")
			assert.Contains(t, buf.String(), "function=saveCheckpoint")
		})
	}

	// no-op before Setup
	NewSlogManager().WriteLog("fn", "data", "info")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"INFO":     slog.LevelInfo,
		"warning":  slog.LevelWarn,
		"Error":    slog.LevelError,
		"critical": LevelCritical,
		"":         slog.LevelInfo,
		"nope":     slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler(t *testing.T) {
	t.Run("fan out and nil filtering", func(t *testing.T) {
		var a, b bytes.Buffer
		multi := NewMultiHandler(nil, slog.NewTextHandler(&a, nil), nil, slog.NewTextHandler(&b, nil))
		require.Len(t, multi.sinks, 2)

		slog.New(multi).Info("both")
		assert.Contains(t, a.String(), "both")
		assert.Contains(t, b.String(), "both")
	})

	t.Run("enabled if any sink is", func(t *testing.T) {
		info := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
		debug := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})
		assert.False(t, NewMultiHandler(info).Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, NewMultiHandler(info, debug).Enabled(context.Background(), slog.LevelDebug))
		assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
	})

	t.Run("failing sink does not block others", func(t *testing.T) {
		var buf bytes.Buffer
		multi := NewMultiHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

		var r slog.Record
		r.Level = slog.LevelInfo
		r.Message = "still delivered"
		err := multi.Handle(context.Background(), r)

		assert.EqualError(t, err, "sink down")
		assert.Contains(t, buf.String(), "still delivered")
	})

	t.Run("attrs and groups", func(t *testing.T) {
		var buf bytes.Buffer
		multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))
		assert.Same(t, multi, multi.WithGroup(""))

		slog.New(multi.WithAttrs([]slog.Attr{slog.Int("prn", 12)}).WithGroup("acq")).Info("hit", "snr", 25)
		out := buf.String()
		assert.Contains(t, out, "prn=12")
		assert.Contains(t, out, "acq.snr=25")
	})
}

func TestContextHandler_WithAttrsFromContext(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)
	logger := slog.New(h)

	ctx := WithAttrs(context.Background(), slog.String("run", "abc"))
	ctx = WithAttrs(ctx, slog.Int("prn", 3))
	logger.InfoContext(ctx, "channel locked")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "run=abc")
	assert.Contains(t, line, "prn=3")
}
