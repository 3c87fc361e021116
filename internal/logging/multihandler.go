package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans every record out to a set of sinks (console, log file,
// OTel bridge, GELF). A failing sink does not stop the others.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler ignores nil sinks.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	kept := make([]slog.Handler, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiHandler{sinks: kept}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle returns the joined errors of the sinks that failed.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := make([]slog.Handler, len(m.sinks))
	for i, s := range m.sinks {
		out[i] = fn(s)
	}
	return &MultiHandler{sinks: out}
}
