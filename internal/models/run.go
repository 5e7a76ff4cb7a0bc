package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// PipelineRun records one updater invocation for auditing. SeasonsProcessed
// and WeeksProcessed accumulate as the run advances so a failed run shows how
// far it got.
type PipelineRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Trigger          string         `gorm:"size:32" json:"trigger"` // "manual", "scheduled", "api"
	Status           string         `gorm:"size:32;index" json:"status"`
	SeasonsProcessed pq.Int64Array  `gorm:"type:integer[]" json:"seasons_processed"`
	WeeksProcessed   pq.StringArray `gorm:"type:text[]" json:"weeks_processed"` // "2024/5" entries
	Error            string         `gorm:"type:text" json:"error,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// BeforeCreate generates a UUID when the database default is unavailable
// (sqlite in tests).
func (r *PipelineRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
