package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mthleonn/bot-auge/internal/models"
	"gorm.io/gorm"
)

type SettingStore struct {
	db *gorm.DB
}

func NewSettingStore(db *gorm.DB) *SettingStore {
	return &SettingStore{db: db}
}

func (s *SettingStore) Get(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return setting.Value, nil
}

func (s *SettingStore) Set(ctx context.Context, key, value string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Setting{}).
		Where("setting_key = ?", key).
		Updates(map[string]any{"setting_value": value, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("set setting %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		setting := models.Setting{Key: key, Value: value, UpdatedAt: now}
		if err := s.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return fmt.Errorf("insert setting %q: %w", key, err)
		}
	}
	return nil
}
