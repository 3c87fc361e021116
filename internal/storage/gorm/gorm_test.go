package gormstorage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/internal/database"
	"github.com/peregrine-sdr/peregrine/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_NoDB(t *testing.T) {
	assert.Error(t, New(Dependencies{}).Init())
}

func TestRoundTrip(t *testing.T) {
	db, err := database.OpenSqlite("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	b := New(Dependencies{DB: db})
	require.NoError(t, b.Init())
	ctx := context.Background()

	a := storage.Key{Source: "x.bin", Name: "acq_results"}
	tr := storage.Key{Source: "x.bin", Name: "track_results"}
	require.NoError(t, b.Put(ctx, a, []byte("acq"), nil))
	require.NoError(t, b.Put(ctx, tr, []byte("trk"), map[string]string{"encoding": "json+gzip"}))

	got, err := b.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []byte("acq"), got)

	labels, err := b.Labels(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"encoding": "json+gzip"}, labels)

	_, err = b.Get(ctx, storage.Key{Source: "y.bin", Name: "acq_results"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
