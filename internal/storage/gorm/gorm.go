// Package gormstorage implements storage.Backend on any GORM dialect. The
// sqlite and postgres backends wrap it and only own the connection.
package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peregrine-sdr/peregrine/internal/logging"
	"github.com/peregrine-sdr/peregrine/internal/model"
	"github.com/peregrine-sdr/peregrine/internal/storage"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend stores checkpoints as rows of model.Checkpoint.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database")
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.log("gorm:Init", "Checkpoint schema migrated", "DEBUG")
	return nil
}

// Close is a no-op; the connection is owned by the wrapping backend.
func (b *Backend) Close() error {
	return nil
}

// DB exposes the connection to wrapping backends.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Put upserts the row for key.
func (b *Backend) Put(ctx context.Context, key storage.Key, data []byte, labels map[string]string) error {
	row := model.Checkpoint{
		Source: key.Source,
		Name:   key.Name,
		Size:   len(data),
		Labels: toJSONMap(labels),
		Data:   data,
	}
	err := b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at", "size", "labels", "data"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	b.log("gorm:Put", fmt.Sprintf("Stored %s (%d bytes)", key, len(data)), "DEBUG")
	return nil
}

func (b *Backend) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	row, err := b.find(ctx, key)
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

// Labels returns the labels stored with key.
func (b *Backend) Labels(ctx context.Context, key storage.Key) (map[string]string, error) {
	row, err := b.find(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(row.Labels))
	for k, v := range row.Labels {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

func (b *Backend) Exists(ctx context.Context, key storage.Key) (bool, error) {
	var n int64
	err := b.deps.DB.WithContext(ctx).Model(&model.Checkpoint{}).
		Where("source = ? AND name = ?", key.Source, key.Name).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", key, err)
	}
	return n > 0, nil
}

// Locate identifies the row for key.
func (b *Backend) Locate(key storage.Key) string {
	return fmt.Sprintf("%s:%s#%s", b.deps.DB.Dialector.Name(), (&model.Checkpoint{}).TableName(), key)
}

func (b *Backend) find(ctx context.Context, key storage.Key) (model.Checkpoint, error) {
	var row model.Checkpoint
	err := b.deps.DB.WithContext(ctx).
		Where("source = ? AND name = ?", key.Source, key.Name).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	if err != nil {
		return row, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return row, nil
}

func (b *Backend) log(fn, msg, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog(fn, msg, level)
	}
}

func toJSONMap(labels map[string]string) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(labels))
	for k, v := range labels {
		m[k] = v
	}
	return m
}
