// Package postgres implements storage.Backend on PostgreSQL by wrapping the
// GORM backend with a validated Postgres connection.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/database"
	"github.com/peregrine-sdr/peregrine/internal/logging"
	gormstorage "github.com/peregrine-sdr/peregrine/internal/storage/gorm"
)

// Backend wraps the GORM backend with connection ownership.
type Backend struct {
	*gormstorage.Backend
	db *gorm.DB
}

// New connects to Postgres using cfg. Call Init before use.
func New(cfg config.DBConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) (*Backend, error) {
	db, err := database.OpenPostgres(cfg, dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewWithDB(db, logManager), nil
}

// NewWithDB creates the backend over an existing connection.
func NewWithDB(db *gorm.DB, logManager *logging.SlogManager) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: logManager}),
		db:      db,
	}
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return database.Close(b.db)
}
