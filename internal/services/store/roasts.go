package store

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"roastbot-api/internal/models"
)

// UpsertRoastConfig inserts or replaces the author's config for a target.
func (s *Store) UpsertRoastConfig(cfg *models.RoastConfig) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"topics", "style"}),
	}).Create(cfg).Error
}

// GetRoastConfig fetches the author's config for a target. Returns
// ErrNotFound when the pair has no row yet.
func (s *Store) GetRoastConfig(userID, targetUserID string) (*models.RoastConfig, error) {
	var cfg models.RoastConfig
	err := s.db.Where("user_id = ? AND target_user_id = ?", userID, targetUserID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigsForTarget returns every author's config about the target, with
// the author's display name joined in.
func (s *Store) ListConfigsForTarget(targetUserID string) ([]models.UserRoastConfig, error) {
	type row struct {
		UserID   string
		UserName string
		Topics   string
		Style    string
	}
	var rows []row
	err := s.db.Table("roast_configs").
		Select("roast_configs.user_id, users.name AS user_name, roast_configs.topics, roast_configs.style").
		Joins("JOIN users ON users.id = roast_configs.user_id").
		Where("roast_configs.target_user_id = ?", targetUserID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	configs := make([]models.UserRoastConfig, 0, len(rows))
	for _, r := range rows {
		configs = append(configs, models.UserRoastConfig{
			UserID:   r.UserID,
			UserName: r.UserName,
			Topics:   models.DecodeTopics(r.Topics),
			Style:    r.Style,
		})
	}
	return configs, nil
}

// SaveRoast appends a generated roast to the target's history.
func (s *Store) SaveRoast(roast *models.RoastHistory) error {
	return s.db.Create(roast).Error
}

// ListRoastHistory returns the newest roasts for a user, most recent first.
func (s *Store) ListRoastHistory(targetUserID string, limit int) ([]models.RoastHistory, error) {
	var rows []models.RoastHistory
	err := s.db.Where("target_user_id = ?", targetUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
