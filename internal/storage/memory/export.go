package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SnapshotEntry is the JSON form of one stored value.
type SnapshotEntry struct {
	Source   string            `json:"source"`
	Name     string            `json:"name"`
	Labels   map[string]string `json:"labels,omitempty"`
	StoredAt time.Time         `json:"storedAt"`
	Data     []byte            `json:"data"`
}

// Snapshot is the root JSON structure of an export.
type Snapshot struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Entries    []SnapshotEntry `json:"entries"`
}

func (b *Backend) buildSnapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{
		ExportedAt: time.Now().UTC(),
		Entries:    make([]SnapshotEntry, 0, len(b.entries)),
	}
	for k, e := range b.entries {
		snap.Entries = append(snap.Entries, SnapshotEntry{
			Source:   k.Source,
			Name:     k.Name,
			Labels:   e.Labels,
			StoredAt: e.StoredAt,
			Data:     e.Data,
		})
	}
	sort.Slice(snap.Entries, func(i, j int) bool {
		if snap.Entries[i].Source != snap.Entries[j].Source {
			return snap.Entries[i].Source < snap.Entries[j].Source
		}
		return snap.Entries[i].Name < snap.Entries[j].Name
	})
	return snap
}

// export writes the snapshot to path as gzipped JSON.
func (b *Backend) export(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return writeGzipJSON(path, b.buildSnapshot())
}

func writeGzipJSON(path string, data Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// ReadSnapshot loads a snapshot written by Close.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return snap, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
