package handlers

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/jstittsworth/league-analytics/internal/models"
	"github.com/jstittsworth/league-analytics/pkg/database"
)

// loadDocument reads one committed cache document row into dest. A missing
// row is not an error; the pipeline simply has not produced the document
// yet.
func loadDocument(db *database.DB, name string, dest interface{}) (bool, error) {
	var row models.CacheDocument
	err := db.Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(row.Data, dest); err != nil {
		return false, err
	}
	return true, nil
}
