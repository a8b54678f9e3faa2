package store

import (
	"encoding/json"
	"errors"

	"chat-automation/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsStore persists per-user automation settings as a JSON patch that
// the engine merges over its defaults.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the stored settings JSON for userID, or nil when the user has
// never saved settings.
func (s *SettingsStore) Get(userID string) (json.RawMessage, error) {
	var row models.UserSettings
	err := s.db.Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(row.Settings), nil
}

// Upsert stores the full settings JSON for userID, replacing any previous row.
func (s *SettingsStore) Upsert(userID string, settings json.RawMessage) error {
	row := models.UserSettings{
		UserID:   userID,
		Settings: []byte(settings),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
	}).Create(&row).Error
}
