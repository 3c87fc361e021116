// Package sqlitestorage implements storage.Backend on SQLite. It wraps the
// GORM backend via composition; the SQLite-specific concerns are opening the
// database and the optional VACUUM INTO copy on Close.
package sqlitestorage

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/peregrine-sdr/peregrine/internal/database"
	"github.com/peregrine-sdr/peregrine/internal/logging"
	gormstorage "github.com/peregrine-sdr/peregrine/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	// Path of the database file. Empty uses an in-memory database.
	Path string
	// DumpPath receives a VACUUM INTO copy on Close. Optional.
	DumpPath string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log *logging.SlogManager
}

// New opens the database and creates the backend. Call Init before use.
func New(cfg Config, logManager *logging.SlogManager, dbLog zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSqlite(cfg.Path, dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: logManager}),
		db:      db,
		cfg:     cfg,
		log:     logManager,
	}, nil
}

// Close dumps the database if configured and closes the connection.
func (b *Backend) Close() error {
	if b.cfg.DumpPath != "" {
		if err := database.DumpToDisk(b.db, b.cfg.DumpPath); err != nil {
			b.log.WriteLog("sqlite:Close", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		} else {
			b.log.WriteLog("sqlite:Close", "Dumped checkpoint DB to "+b.cfg.DumpPath, "DEBUG")
		}
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return database.Close(b.db)
}
