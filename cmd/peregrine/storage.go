package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/logging"
	"github.com/peregrine-sdr/peregrine/internal/storage"
	"github.com/peregrine-sdr/peregrine/internal/storage/file"
	"github.com/peregrine-sdr/peregrine/internal/storage/memory"
	pgstorage "github.com/peregrine-sdr/peregrine/internal/storage/postgres"
	sqlitestorage "github.com/peregrine-sdr/peregrine/internal/storage/sqlite"
)

// createStorageBackend builds and initializes the checkpoint backend named
// by cfg.Store.
func createStorageBackend(cfg config.CheckpointConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) (storage.Backend, error) {
	backend, err := newStorageBackend(cfg, logManager, dbLog)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize %s checkpoint store: %w", cfg.Store, err)
	}
	return backend, nil
}

func newStorageBackend(cfg config.CheckpointConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) (storage.Backend, error) {
	log := logManager.Logger()
	switch cfg.Store {
	case "", "file":
		log.Debug("File checkpoint store selected", "dir", cfg.Dir)
		return file.New(file.Config{Dir: cfg.Dir}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{Path: cfg.SQLitePath}, logManager, dbLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite checkpoint store initialized", "path", cfg.SQLitePath)
		return backend, nil

	case "postgres":
		dbCfg := config.GetDBConfig()
		backend, err := pgstorage.New(dbCfg, logManager, dbLog)
		if err != nil {
			return nil, err
		}
		log.Info("Postgres checkpoint store initialized", "host", dbCfg.Host, "database", dbCfg.Database)
		return backend, nil

	case "memory":
		if cfg.MemoryExport == "" {
			log.Warn("Memory checkpoint store selected, results will not outlive this run")
		} else {
			log.Info("Memory checkpoint store selected", "snapshot", cfg.MemoryExport)
		}
		return memory.New(memory.Config{ExportPath: cfg.MemoryExport}), nil

	default:
		return nil, fmt.Errorf("unknown checkpoint store %q (want file, sqlite, postgres or memory)", cfg.Store)
	}
}
