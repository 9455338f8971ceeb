package repository

import (
	"context"
	"time"

	"github.com/mthleonn/bot-auge/internal/models"
)

// Every method takes a context first so storage calls are cancellable during
// shutdown. Single-entity lookups return nil, nil when nothing matched; list
// methods return an empty (never nil) slice.

// MemberInfo carries the fields of a Telegram user the store cares about.
type MemberInfo struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// UserRepository owns the users table.
type UserRepository interface {
	// Upsert inserts or refreshes a user. JoinedAt is set on first insert
	// and preserved on every later call; the user is reactivated.
	Upsert(ctx context.Context, info MemberInfo) error

	// GetByID returns a user by Telegram id. Returns nil, nil if not found.
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// SetFunnelStep advances the funnel step and stamps last_funnel_message
	// with the current time.
	SetFunnelStep(ctx context.Context, userID int64, step int) error

	// EligibleForStep returns active users sitting at step whose reference
	// time (joined_at for step 0, last_funnel_message otherwise) is at
	// least threshold in the past.
	EligibleForStep(ctx context.Context, step int, threshold time.Duration) ([]models.User, error)

	// ListActive returns all active users, for broadcast fan-out.
	ListActive(ctx context.Context) ([]models.User, error)

	// ListRecent returns the most recently joined active users.
	ListRecent(ctx context.Context, limit int) ([]models.User, error)

	// CountActive counts active users.
	CountActive(ctx context.Context) (int64, error)

	// CountJoinedSince counts active users who joined at or after t.
	CountJoinedSince(ctx context.Context, t time.Time) (int64, error)

	// FunnelDistribution returns active-user counts per funnel step.
	FunnelDistribution(ctx context.Context) ([]models.FunnelCount, error)

	// Deactivate soft-deletes a user (excluded from broadcasts and sweeps).
	Deactivate(ctx context.Context, userID int64) error
}

// LinkRepository owns the append-only link_clicks table.
type LinkRepository interface {
	// RecordClick appends one link event.
	RecordClick(ctx context.Context, click models.LinkClick) error

	// ClickStats aggregates clicks per link type inside the window.
	// linkType narrows to one type when non-empty.
	ClickStats(ctx context.Context, linkType string, windowDays int) ([]models.LinkTypeStats, error)

	// CountForUserSince counts a user's recorded link events since t,
	// backing the daily link quota.
	CountForUserSince(ctx context.Context, userID int64, t time.Time) (int64, error)

	// ListSince returns raw events inside the window, optionally scoped to
	// one chat (chatID 0 = all chats), for the link report.
	ListSince(ctx context.Context, chatID int64, t time.Time) ([]models.LinkClick, error)

	// DeleteOlderThan removes events older than t and reports how many.
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)
}

// SettingRepository owns the persisted key-value settings.
type SettingRepository interface {
	// Get returns the value for key, or "" with nil error when unset.
	Get(ctx context.Context, key string) (string, error)

	// Set writes (or overwrites) a key and stamps updated_at.
	Set(ctx context.Context, key, value string) error
}
