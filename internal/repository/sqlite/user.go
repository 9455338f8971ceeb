package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mthleonn/bot-auge/internal/models"
	"github.com/mthleonn/bot-auge/internal/repository"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Upsert inserts a new user or refreshes the display fields of an existing
// one. JoinedAt is written exactly once: re-joining or chatting again never
// moves a user's reference time backwards into the funnel.
func (s *UserStore) Upsert(ctx context.Context, info repository.MemberInfo) error {
	var existing models.User
	err := s.db.WithContext(ctx).Where("user_id = ?", info.UserID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u := models.User{
			UserID:    info.UserID,
			Username:  info.Username,
			FirstName: info.FirstName,
			LastName:  info.LastName,
			JoinedAt:  time.Now(),
			IsActive:  true,
		}
		if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup user: %w", err)
	}

	updates := map[string]any{
		"username":   info.Username,
		"first_name": info.FirstName,
		"last_name":  info.LastName,
		"is_active":  true,
	}
	if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// SetFunnelStep advances the step and stamps last_funnel_message together,
// so the next stage's gate always measures from the last delivery.
func (s *UserStore) SetFunnelStep(ctx context.Context, userID int64, step int) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"funnel_step":         step,
			"last_funnel_message": now,
		})
	if res.Error != nil {
		return fmt.Errorf("set funnel step: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set funnel step: user %d not found", userID)
	}
	return nil
}

// EligibleForStep is the single filtered query behind one funnel transition:
// active users at the given step whose reference time crossed the threshold.
func (s *UserStore) EligibleForStep(ctx context.Context, step int, threshold time.Duration) ([]models.User, error) {
	cutoff := time.Now().Add(-threshold)

	q := s.db.WithContext(ctx).
		Where("funnel_step = ? AND is_active = ?", step, true)
	if step == 0 {
		q = q.Where("joined_at <= ?", cutoff)
	} else {
		q = q.Where("last_funnel_message IS NOT NULL AND last_funnel_message <= ?", cutoff)
	}

	users := make([]models.User, 0)
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("eligible users for step %d: %w", step, err)
	}
	return users, nil
}

func (s *UserStore) ListActive(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return users, nil
}

func (s *UserStore) ListRecent(ctx context.Context, limit int) ([]models.User, error) {
	users := make([]models.User, 0)
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("joined_at DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list recent users: %w", err)
	}
	return users, nil
}

func (s *UserStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

func (s *UserStore) CountJoinedSince(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND joined_at >= ?", true, t).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count joined since: %w", err)
	}
	return count, nil
}

func (s *UserStore) FunnelDistribution(ctx context.Context) ([]models.FunnelCount, error) {
	counts := make([]models.FunnelCount, 0)
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("funnel_step, COUNT(*) as count").
		Where("is_active = ?", true).
		Group("funnel_step").
		Order("funnel_step").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("funnel distribution: %w", err)
	}
	return counts, nil
}

func (s *UserStore) Deactivate(ctx context.Context, userID int64) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}
