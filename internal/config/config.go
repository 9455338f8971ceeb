package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the bot reads from the environment. BOT_TOKEN is
// the only mandatory value; group ids, links and tunables all have defaults
// or degrade to a disabled feature when absent.
type Config struct {
	BotToken string

	Env      string
	LogLevel string

	DBPath     string
	HealthPort string

	GroupChatID        int64
	DuvidasGroupChatID int64
	AdminIDs           []int64

	DuvidasGroupLink string
	MentoriaLink     string
	MeetingLink      string

	FunnelCheckInterval time.Duration
	FunnelSendDelay     time.Duration

	BroadcastDelay time.Duration
	SendTimeout    time.Duration
	WarningTTL     time.Duration

	MaxLinksPerMessage   int
	MaxMessagesPerMinute int
	MaxLinksPerDay       int
	LinkRetentionDays    int
}

// Load reads configuration from the environment. It fails only when the
// bot access token is missing; everything else falls back to a default.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PATH", "./data/bot.db")
	v.SetDefault("HEALTH_PORT", "8081")
	v.SetDefault("DUVIDAS_GROUP_LINK", "https://t.me/seu_grupo_duvidas")
	v.SetDefault("MENTORIA_LINK", "https://www.mentoriaaugetraders.com.br/")
	v.SetDefault("MEETING_LINK", "https://meet.google.com/auge-traders-weekly")
	v.SetDefault("FUNNEL_CHECK_INTERVAL", "30m")
	v.SetDefault("FUNNEL_SEND_DELAY", "2s")
	v.SetDefault("BROADCAST_DELAY", "100ms")
	v.SetDefault("SEND_TIMEOUT", "10s")
	v.SetDefault("WARNING_TTL", "10s")
	v.SetDefault("MAX_LINKS_PER_MESSAGE", 2)
	v.SetDefault("MAX_MESSAGES_PER_MINUTE", 5)
	v.SetDefault("MAX_LINKS_PER_DAY", 5)
	v.SetDefault("LINK_RETENTION_DAYS", 30)

	token := v.GetString("BOT_TOKEN")
	if token == "" {
		token = v.GetString("TELEGRAM_BOT_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}

	adminIDs, err := parseAdminIDs(v.GetString("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("parse ADMIN_IDS: %w", err)
	}

	return &Config{
		BotToken: token,

		Env:      v.GetString("ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DBPath:     v.GetString("DB_PATH"),
		HealthPort: v.GetString("HEALTH_PORT"),

		GroupChatID:        v.GetInt64("GROUP_CHAT_ID"),
		DuvidasGroupChatID: v.GetInt64("DUVIDAS_GROUP_CHAT_ID"),
		AdminIDs:           adminIDs,

		DuvidasGroupLink: v.GetString("DUVIDAS_GROUP_LINK"),
		MentoriaLink:     v.GetString("MENTORIA_LINK"),
		MeetingLink:      v.GetString("MEETING_LINK"),

		FunnelCheckInterval: v.GetDuration("FUNNEL_CHECK_INTERVAL"),
		FunnelSendDelay:     v.GetDuration("FUNNEL_SEND_DELAY"),

		BroadcastDelay: v.GetDuration("BROADCAST_DELAY"),
		SendTimeout:    v.GetDuration("SEND_TIMEOUT"),
		WarningTTL:     v.GetDuration("WARNING_TTL"),

		MaxLinksPerMessage:   v.GetInt("MAX_LINKS_PER_MESSAGE"),
		MaxMessagesPerMinute: v.GetInt("MAX_MESSAGES_PER_MINUTE"),
		MaxLinksPerDay:       v.GetInt("MAX_LINKS_PER_DAY"),
		LinkRetentionDays:    v.GetInt("LINK_RETENTION_DAYS"),
	}, nil
}

// IsAdmin reports whether the given user id is on the admin allowlist.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// parseAdminIDs splits a comma-separated id list ("123, 456") into int64s.
// An empty value means no admins are configured.
func parseAdminIDs(raw string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
