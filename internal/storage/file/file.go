// Package file implements storage.Backend with one file per key, the
// default checkpoint layout: "<source>.<name>" next to the input, or
// "<base>-<hash>.<name>" inside Dir when configured, where hash identifies
// the absolute source path.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peregrine-sdr/peregrine/internal/storage"
)

// Config holds configuration for the file backend.
type Config struct {
	// Dir relocates checkpoint files. Empty keeps them beside the source.
	Dir  string
	Perm fs.FileMode
}

// Backend stores each key as a file written atomically.
type Backend struct {
	cfg Config
}

// New creates a file backend.
func New(cfg Config) *Backend {
	if cfg.Perm == 0 {
		cfg.Perm = 0644
	}
	return &Backend{cfg: cfg}
}

// Init creates Dir if set.
func (b *Backend) Init() error {
	if b.cfg.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(b.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// Locate returns the file path for key.
func (b *Backend) Locate(key storage.Key) string {
	if b.cfg.Dir == "" {
		return key.Source + "." + key.Name
	}
	return filepath.Join(b.cfg.Dir, filepath.Base(key.Source)+"-"+sourceHash(key.Source)+"."+key.Name)
}

// sourceHash keeps inputs with the same base name in different directories
// apart inside a shared Dir.
func sourceHash(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = filepath.Clean(source)
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:4])
}

// Put writes data to a temp file in the target directory and renames it over
// the final path, so a reader never sees a partial checkpoint.
func (b *Backend) Put(ctx context.Context, key storage.Key, data []byte, _ map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := b.Locate(key)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, b.cfg.Perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.Locate(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, b.Locate(key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.Locate(key), err)
	}
	return data, nil
}

func (b *Backend) Exists(ctx context.Context, key storage.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(b.Locate(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
