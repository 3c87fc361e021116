package postgres

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/database"
	"github.com/peregrine-sdr/peregrine/internal/logging"
	"github.com/peregrine-sdr/peregrine/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew_Unreachable(t *testing.T) {
	lm := logging.NewSlogManager()
	lm.SetConsole(nil)

	_, err := New(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "nobody",
		Database: "none",
	}, lm, zerolog.Nop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to postgres")
}

// The GORM layer is dialect-agnostic, so an in-memory SQLite connection
// stands in for a server here.
func TestNewWithDB_RoundTrip(t *testing.T) {
	lm := logging.NewSlogManager()
	lm.SetConsole(nil)
	db, err := database.OpenSqlite("", zerolog.Nop())
	require.NoError(t, err)

	b := NewWithDB(db, lm)
	require.NoError(t, b.Init())

	ctx := context.Background()
	key := storage.Key{Source: "gps.bin", Name: "nav_results"}
	require.NoError(t, b.Put(ctx, key, []byte("payload"), nil))

	got, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, b.Close())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "Close releases the pool")
}
