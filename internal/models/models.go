package models

import (
	"time"
)

// Funnel steps a user moves through after joining the main group.
// The step only ever advances, one stage at a time, and 3 is terminal.
const (
	StepNew          = 0
	StepEngaged24h   = 1
	StepMentoria48h  = 2
	StepReminder72h  = 3
	StepTerminal     = StepReminder72h
)

// User is one community member. UserID is the Telegram id and the stable
// identity; the surrogate ID column only exists for the ORM.
//
// JoinedAt is written once when the user is first seen and preserved across
// later upserts. LastFunnelMessage is stamped every time a funnel stage
// message is delivered and is the reference time for stages 1 and 2.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	UserID            int64      `gorm:"uniqueIndex;not null" json:"user_id"`
	Username          string     `json:"username"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	JoinedAt          time.Time  `json:"joined_at"`
	FunnelStep        int        `gorm:"default:0" json:"funnel_step"`
	LastFunnelMessage *time.Time `json:"last_funnel_message"`
	IsActive          bool       `gorm:"default:true" json:"is_active"`
}

// DisplayName picks the friendliest handle available for message templates.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "Novo membro"
}

// LinkClick is an append-only record of a link shared or clicked in the
// community. LinkID is a deterministic short hash of the URL so the same
// URL always maps to the same id. Command-sourced events (e.g. the meeting
// link) carry a free-form LinkType tag and no URL-derived fields.
type LinkClick struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	LinkID    string    `gorm:"index" json:"link_id"`
	URL       string    `json:"url"`
	Domain    string    `gorm:"index" json:"domain"`
	LinkType  string    `gorm:"not null" json:"link_type"`
	ChatID    int64     `json:"chat_id"`
	ClickedAt time.Time `json:"clicked_at"`
}

// ScheduledMessage mirrors the original storage layout. The funnel sweep
// recomputes eligibility live and never reads this table.
type ScheduledMessage struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	MessageType  string    `gorm:"not null" json:"message_type"`
	ScheduledFor time.Time `gorm:"not null" json:"scheduled_for"`
	Sent         bool      `gorm:"default:false" json:"sent"`
	CreatedAt    time.Time `json:"created_at"`
}

// Setting is a persisted key-value pair for dynamic configuration that must
// survive restarts (e.g. the weekly meeting link).
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Key       string    `gorm:"column:setting_key;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"column:setting_value;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the settings table name from the original schema.
func (Setting) TableName() string { return "bot_settings" }

// LinkTypeStats is one aggregated row of click statistics.
type LinkTypeStats struct {
	LinkType    string `json:"link_type"`
	Clicks      int64  `json:"clicks"`
	UniqueUsers int64  `json:"unique_users"`
}

// FunnelCount is how many active users currently sit at one funnel step.
type FunnelCount struct {
	FunnelStep int   `json:"funnel_step"`
	Count      int64 `json:"count"`
}
