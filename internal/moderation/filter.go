package moderation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mthleonn/bot-auge/internal/links"
	"github.com/mthleonn/bot-auge/internal/metrics"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"go.uber.org/zap"
)

// Moderation reasons, used in logs and metrics labels.
const (
	ReasonKeyword = "keyword"
	ReasonLinks   = "links"
	ReasonRate    = "rate"
	ReasonDomain  = "link_moderation"
)

var spamKeywords = []string{
	"compre agora", "ganhe dinheiro fácil", "investimento garantido",
	"lucro certo", "sem risco", "dinheiro rápido", "oportunidade única",
	"clique aqui", "telegram.me", "t.me", "whatsapp", "zap",
}

var urlishRe = regexp.MustCompile(`(?i)https?://|www\.|t\.me|telegram\.me`)

// Options are the moderation tunables.
type Options struct {
	MaxLinksPerMessage   int
	MaxMessagesPerMinute int
	MaxLinksPerDay       int
	WarningTTL           time.Duration
}

// Filter classifies inbound messages and enforces moderation: delete the
// offending message, post a transient warning, delete the warning shortly
// after. Admin senders always pass.
type Filter struct {
	sender  telegram.Sender
	users   repository.UserRepository
	tracker *links.Tracker
	isAdmin func(int64) bool
	limiter *RateLimiter
	opts    Options
	logger  *zap.Logger
}

func NewFilter(
	sender telegram.Sender,
	users repository.UserRepository,
	tracker *links.Tracker,
	isAdmin func(int64) bool,
	opts Options,
	logger *zap.Logger,
) *Filter {
	return &Filter{
		sender:  sender,
		users:   users,
		tracker: tracker,
		isAdmin: isAdmin,
		limiter: NewRateLimiter(opts.MaxMessagesPerMinute, time.Minute),
		opts:    opts,
		logger:  logger,
	}
}

// Classify decides allow vs moderate for one message. First match wins:
// admins always pass, then spam keywords, then URL-ish token count, then
// the per-user message rate inside the last minute.
func (f *Filter) Classify(senderID int64, text string) (moderate bool, reason string) {
	if f.isAdmin(senderID) {
		return false, ""
	}

	lower := strings.ToLower(text)
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			f.logger.Warn("spam keyword detected",
				zap.Int64("user_id", senderID),
				zap.String("keyword", kw))
			return true, ReasonKeyword
		}
	}

	if n := len(urlishRe.FindAllString(text, -1)); n > f.opts.MaxLinksPerMessage {
		f.logger.Warn("too many links in message",
			zap.Int64("user_id", senderID),
			zap.Int("links", n))
		return true, ReasonLinks
	}

	if f.limiter.Record(senderID) {
		f.logger.Warn("message rate exceeded", zap.Int64("user_id", senderID))
		return true, ReasonRate
	}

	return false, ""
}

// Enforce deletes a moderated message and posts a transient warning naming
// the sender. The warning is deleted after the configured TTL. Failures to
// delete are logged, never retried.
func (f *Filter) Enforce(ctx context.Context, chatID int64, messageID int, sender telegram.Member, reason string) {
	if err := f.sender.DeleteMessage(ctx, chatID, messageID); err != nil {
		f.logger.Error("delete moderated message",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err))
	}

	name := sender.Username
	if name == "" {
		name = sender.FirstName
	}
	warning := fmt.Sprintf("⚠️ Mensagem de @%s foi removida por suspeita de spam.", name)
	f.postTransientWarning(ctx, chatID, warning)

	metrics.MessagesModerated.WithLabelValues(reason).Inc()
	f.logger.Info("message moderated",
		zap.Int64("user_id", sender.ID),
		zap.String("reason", reason))
}

// NeedsModeration applies the link-specific policy to a message's links:
// suspicious domain, daily link quota exceeded, or a sender that joined
// less than 24h ago. Admins bypass. Returns the detected domains.
func (f *Filter) NeedsModeration(ctx context.Context, senderID int64, found []string) (bool, []string) {
	domains := make([]string, 0, len(found))
	for _, link := range found {
		domains = append(domains, links.ExtractDomain(link))
	}
	if len(found) == 0 || f.isAdmin(senderID) {
		return false, domains
	}

	for _, d := range domains {
		if links.IsSuspicious(d) {
			return true, domains
		}
	}

	if f.tracker.CountToday(ctx, senderID) > int64(f.opts.MaxLinksPerDay) {
		return true, domains
	}

	user, err := f.users.GetByID(ctx, senderID)
	if err != nil {
		f.logger.Error("lookup sender for link moderation",
			zap.Int64("user_id", senderID), zap.Error(err))
		return false, domains
	}
	if user != nil && time.Since(user.JoinedAt) < 24*time.Hour {
		return true, domains
	}

	return false, domains
}

// EnforceLinks deletes a link-moderated message and posts the link warning
// enumerating the first three domains.
func (f *Filter) EnforceLinks(ctx context.Context, chatID int64, messageID int, sender telegram.Member, domains []string) {
	if err := f.sender.DeleteMessage(ctx, chatID, messageID); err != nil {
		f.logger.Error("delete link-moderated message",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err))
	}

	var b strings.Builder
	b.WriteString("⚠️ *Mensagem Moderada* ⚠️\n\n")
	fmt.Fprintf(&b, "👤 *Usuário:* %s\n", sender.FirstName)
	b.WriteString("🔗 *Motivo:* Link suspeito ou spam\n\n")
	b.WriteString("📋 *Links detectados:*\n")
	shown := domains
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for _, d := range shown {
		fmt.Fprintf(&b, "• `%s`\n", d)
	}
	if extra := len(domains) - 3; extra > 0 {
		fmt.Fprintf(&b, "• ... e mais %d links\n", extra)
	}
	b.WriteString("\n🛡️ *Ação:* Mensagem removida automaticamente")

	f.postTransientWarning(ctx, chatID, b.String())

	metrics.MessagesModerated.WithLabelValues(ReasonDomain).Inc()
	f.logger.Warn("message link-moderated",
		zap.Int64("user_id", sender.ID),
		zap.Int("links", len(domains)))
}

// postTransientWarning sends a warning and schedules its deletion after the
// TTL without blocking the event loop.
func (f *Filter) postTransientWarning(ctx context.Context, chatID int64, text string) {
	warningID, err := f.sender.SendMessage(ctx, chatID, text)
	if err != nil {
		f.logger.Error("send moderation warning", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	go func() {
		timer := time.NewTimer(f.opts.WarningTTL)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := f.sender.DeleteMessage(ctx, chatID, warningID); err != nil {
			f.logger.Error("delete moderation warning",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", warningID),
				zap.Error(err))
		}
	}()
}
