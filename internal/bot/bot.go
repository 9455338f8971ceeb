package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mthleonn/bot-auge/internal/admin"
	"github.com/mthleonn/bot-auge/internal/config"
	"github.com/mthleonn/bot-auge/internal/links"
	"github.com/mthleonn/bot-auge/internal/metrics"
	"github.com/mthleonn/bot-auge/internal/moderation"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"go.uber.org/zap"
)

// Message is one inbound text message or command, already mapped out of the
// platform update shape.
type Message struct {
	ChatID    int64
	MessageID int
	Sender    telegram.Member
	Text      string
}

// Bot owns the sequential event loop: updates are handled one at a time in
// arrival order. All heavy lifting is delegated to the injected components.
type Bot struct {
	client   *telegram.Client
	sender   telegram.Sender
	users    repository.UserRepository
	settings repository.SettingRepository
	tracker  *links.Tracker
	filter   *moderation.Filter
	admins   *admin.Router
	welcome  *Welcome
	cfg      *config.Config
	logger   *zap.Logger
}

func New(
	client *telegram.Client,
	sender telegram.Sender,
	users repository.UserRepository,
	settings repository.SettingRepository,
	tracker *links.Tracker,
	filter *moderation.Filter,
	admins *admin.Router,
	cfg *config.Config,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		client:   client,
		sender:   sender,
		users:    users,
		settings: settings,
		tracker:  tracker,
		filter:   filter,
		admins:   admins,
		welcome:  NewWelcome(sender, users, cfg, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// Run consumes the long-poll update stream until ctx is cancelled. The
// in-flight update finishes before Run returns.
func (b *Bot) Run(ctx context.Context) {
	updates := b.client.Updates()
	b.logger.Info("event loop started")

	for {
		select {
		case <-ctx.Done():
			b.client.Stop()
			b.logger.Info("event loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("update stream closed")
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	metrics.UpdatesProcessed.Inc()

	if len(msg.NewChatMembers) > 0 {
		members := make([]telegram.Member, 0, len(msg.NewChatMembers))
		for i := range msg.NewChatMembers {
			members = append(members, memberFrom(&msg.NewChatMembers[i]))
		}
		b.welcome.HandleNewMembers(ctx, msg.Chat.ID, b.client.BotID(), members)
		return
	}

	if msg.From == nil || msg.From.IsBot {
		return
	}

	m := Message{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Sender:    memberFrom(msg.From),
		Text:      msg.Text,
	}

	if msg.IsCommand() {
		b.HandleCommand(ctx, m, msg.Command(), msg.CommandArguments())
		return
	}
	b.HandleText(ctx, m)
}

// HandleText runs the plain-text pipeline: refresh the sender's record,
// moderation first, then link tracking and link-specific moderation.
// Only messages in monitored groups are processed.
func (b *Bot) HandleText(ctx context.Context, m Message) {
	if !b.isMonitoredGroup(m.ChatID) {
		return
	}

	b.refreshUser(ctx, m.Sender)

	if moderate, reason := b.filter.Classify(m.Sender.ID, m.Text); moderate {
		b.filter.Enforce(ctx, m.ChatID, m.MessageID, m.Sender, reason)
		return
	}

	found := b.tracker.Track(ctx, m.ChatID, m.Sender.ID, m.Text)
	if len(found) == 0 {
		return
	}
	if moderate, domains := b.filter.NeedsModeration(ctx, m.Sender.ID, found); moderate {
		b.filter.EnforceLinks(ctx, m.ChatID, m.MessageID, m.Sender, domains)
	}
}

// refreshUser keeps the sender's stored display fields current. A brand-new
// sender gets inserted (joined_at = now). Storage faults are logged only.
func (b *Bot) refreshUser(ctx context.Context, sender telegram.Member) {
	existing, err := b.users.GetByID(ctx, sender.ID)
	if err != nil {
		b.logger.Error("lookup user", zap.Int64("user_id", sender.ID), zap.Error(err))
		return
	}
	if existing != nil &&
		existing.Username == sender.Username &&
		existing.FirstName == sender.FirstName {
		return
	}

	info := repository.MemberInfo{
		UserID:    sender.ID,
		Username:  sender.Username,
		FirstName: sender.FirstName,
		LastName:  sender.LastName,
	}
	if err := b.users.Upsert(ctx, info); err != nil {
		b.logger.Error("upsert user", zap.Int64("user_id", sender.ID), zap.Error(err))
	}
}

func (b *Bot) isMonitoredGroup(chatID int64) bool {
	return (b.cfg.GroupChatID != 0 && chatID == b.cfg.GroupChatID) ||
		(b.cfg.DuvidasGroupChatID != 0 && chatID == b.cfg.DuvidasGroupChatID)
}

func memberFrom(u *tgbotapi.User) telegram.Member {
	return telegram.Member{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
