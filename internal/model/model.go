// Package model defines the GORM models persisted by the database-backed
// checkpoint stores.
package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists every model migrated at startup.
var DatabaseModels = []any{
	&Checkpoint{},
}

// Checkpoint is one stored stage result, unique per (source, name).
type Checkpoint struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
	Source    string    `json:"source" gorm:"size:1024;not null;uniqueIndex:idx_checkpoint_key"`
	Name      string    `json:"name" gorm:"size:64;not null;uniqueIndex:idx_checkpoint_key"`
	Size      int       `json:"size"`
	// Labels carry envelope metadata (fingerprint, encoding, run id)
	Labels datatypes.JSONMap `json:"labels"`
	Data   []byte            `json:"-" gorm:"not null"`
}

func (*Checkpoint) TableName() string {
	return "checkpoints"
}
