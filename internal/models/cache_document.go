package models

import (
	"time"

	"gorm.io/datatypes"
)

// CacheDocument is one named analytics document serialized to JSONB. The
// updater owns writes; API handlers read committed rows only.
type CacheDocument struct {
	Name      string         `gorm:"primaryKey;size:64" json:"name"`
	Data      datatypes.JSON `gorm:"type:jsonb" json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CacheDocument) TableName() string {
	return "cache_documents"
}
