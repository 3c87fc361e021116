// Package memory implements storage.Backend in process memory. Values do not
// outlive the process unless ExportPath is set, in which case Close writes a
// snapshot there and the next Init restores it.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"sync"
	"time"

	"github.com/peregrine-sdr/peregrine/internal/storage"
)

// Config holds configuration for the memory backend.
type Config struct {
	// ExportPath receives a gzipped JSON snapshot on Close. Optional.
	ExportPath string
}

// Entry is one stored value.
type Entry struct {
	Data     []byte
	Labels   map[string]string
	StoredAt time.Time
}

// Backend keeps values in a map guarded by a RWMutex.
type Backend struct {
	cfg     Config
	mu      sync.RWMutex
	entries map[storage.Key]Entry

	lastExportPath string
}

// New creates a new memory backend
func New(cfg Config) *Backend {
	return &Backend{
		cfg:     cfg,
		entries: make(map[storage.Key]Entry),
	}
}

// Init restores the snapshot at ExportPath if one exists.
func (b *Backend) Init() error {
	if b.cfg.ExportPath == "" {
		return nil
	}
	snap, err := ReadSnapshot(b.cfg.ExportPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore memory store: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range snap.Entries {
		b.entries[storage.Key{Source: e.Source, Name: e.Name}] = Entry{
			Data:     e.Data,
			Labels:   e.Labels,
			StoredAt: e.StoredAt,
		}
	}
	return nil
}

// Close writes the export snapshot if configured.
func (b *Backend) Close() error {
	if b.cfg.ExportPath == "" {
		return nil
	}
	if err := b.export(b.cfg.ExportPath); err != nil {
		return fmt.Errorf("failed to export memory store: %w", err)
	}
	b.lastExportPath = b.cfg.ExportPath
	return nil
}

// Put copies data so later mutation by the caller does not leak in.
func (b *Backend) Put(ctx context.Context, key storage.Key, data []byte, labels map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = Entry{
		Data:     append([]byte(nil), data...),
		Labels:   maps.Clone(labels),
		StoredAt: time.Now().UTC(),
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return append([]byte(nil), e.Data...), nil
}

func (b *Backend) Exists(ctx context.Context, key storage.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[key]
	return ok, nil
}

// Entry returns the stored entry including labels.
func (b *Backend) Entry(key storage.Key) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[key]
	return e, ok
}

// Len returns the number of stored keys.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// GetExportedFilePath returns the path of the last snapshot written by Close.
func (b *Backend) GetExportedFilePath() string {
	return b.lastExportPath
}
