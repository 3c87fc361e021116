package main

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/logging"
	"github.com/peregrine-sdr/peregrine/internal/storage/file"
	"github.com/peregrine-sdr/peregrine/internal/storage/memory"
	sqlitestorage "github.com/peregrine-sdr/peregrine/internal/storage/sqlite"
)

func TestCreateStorageBackend(t *testing.T) {
	lm := logging.NewSlogManager()
	lm.SetConsole(nil)
	lm.Setup(nil, "error", nil)
	dir := t.TempDir()

	fb, err := createStorageBackend(config.CheckpointConfig{Store: "file", Dir: filepath.Join(dir, "ckpt")}, lm, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &file.Backend{}, fb)
	assert.DirExists(t, filepath.Join(dir, "ckpt"))

	mb, err := createStorageBackend(config.CheckpointConfig{Store: "memory"}, lm, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, mb)

	sb, err := createStorageBackend(config.CheckpointConfig{Store: "sqlite", SQLitePath: filepath.Join(dir, "p.db")}, lm, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, sb)
	require.NoError(t, sb.Close())

	snapshot := filepath.Join(dir, "mem", "checkpoints.json.gz")
	eb, err := createStorageBackend(config.CheckpointConfig{Store: "memory", MemoryExport: snapshot}, lm, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, eb.Close())
	assert.FileExists(t, snapshot)
	assert.Equal(t, snapshot, eb.(*memory.Backend).GetExportedFilePath())

	_, err = createStorageBackend(config.CheckpointConfig{Store: "tape"}, lm, zerolog.Nop())
	assert.Error(t, err)
}
