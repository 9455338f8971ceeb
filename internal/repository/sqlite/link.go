package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mthleonn/bot-auge/internal/models"
	"gorm.io/gorm"
)

type LinkStore struct {
	db *gorm.DB
}

func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) RecordClick(ctx context.Context, click models.LinkClick) error {
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&click).Error; err != nil {
		return fmt.Errorf("record link click: %w", err)
	}
	return nil
}

func (s *LinkStore) ClickStats(ctx context.Context, linkType string, windowDays int) ([]models.LinkTypeStats, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	q := s.db.WithContext(ctx).Model(&models.LinkClick{}).
		Select("link_type, COUNT(*) as clicks, COUNT(DISTINCT user_id) as unique_users").
		Where("clicked_at >= ?", cutoff).
		Group("link_type")
	if linkType != "" {
		q = q.Where("link_type = ?", linkType)
	}

	stats := make([]models.LinkTypeStats, 0)
	if err := q.Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("click stats: %w", err)
	}
	return stats, nil
}

func (s *LinkStore) CountForUserSince(ctx context.Context, userID int64, t time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.LinkClick{}).
		Where("user_id = ? AND clicked_at >= ?", userID, t).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count user links: %w", err)
	}
	return count, nil
}

func (s *LinkStore) ListSince(ctx context.Context, chatID int64, t time.Time) ([]models.LinkClick, error) {
	q := s.db.WithContext(ctx).Where("clicked_at >= ?", t)
	if chatID != 0 {
		q = q.Where("chat_id = ?", chatID)
	}

	clicks := make([]models.LinkClick, 0)
	if err := q.Find(&clicks).Error; err != nil {
		return nil, fmt.Errorf("list link clicks: %w", err)
	}
	return clicks, nil
}

func (s *LinkStore) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("clicked_at < ?", t).
		Delete(&models.LinkClick{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old link clicks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
