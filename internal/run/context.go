// Package run holds the identity and progress of the current receiver run.
package run

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context holds the run id, input file and current pipeline stage. It is
// read by the log context handler from any goroutine.
type Context struct {
	mu      sync.RWMutex
	ID      uuid.UUID
	Source  string
	Started time.Time
	stage   string
}

// NewContext creates a Context for source with a fresh random id.
func NewContext(source string) *Context {
	return &Context{
		ID:      uuid.New(),
		Source:  source,
		Started: time.Now().UTC(),
		stage:   "init",
	}
}

// Stage returns the current stage name.
func (c *Context) Stage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stage
}

// SetStage records the stage the pipeline has entered.
func (c *Context) SetStage(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage = stage
}

// LogAttrs is a logging.ContextProvider.
func (c *Context) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("run_id", c.ID.String()),
		slog.String("stage", c.Stage()),
	}
}
