// Package storage defines the key/value contract the checkpoint store is
// built on. Values are opaque bytes.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Key addresses one stored value: the input file it belongs to and a
// per-stage name such as "acq_results".
type Key struct {
	Source string
	Name   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s.%s", k.Source, k.Name)
}

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Put stores data under key, replacing any previous value. Labels are
	// advisory metadata; backends without an index for them drop them.
	Put(ctx context.Context, key Key, data []byte, labels map[string]string) error
	// Get returns the value under key or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Exists reports whether a value is stored under key.
	Exists(ctx context.Context, key Key) (bool, error)
}

// Locator is implemented by backends that keep one addressable artifact per
// key (a file path, a row reference).
type Locator interface {
	Locate(key Key) string
}
