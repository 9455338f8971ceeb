package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mthleonn/bot-auge/internal/funnel"
	"github.com/mthleonn/bot-auge/internal/metrics"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"go.uber.org/zap"
)

const deniedReply = "❌ Você não tem permissão para usar comandos de administrador."

// Router dispatches the permission-gated admin commands. The allowlist is
// checked before anything else; unauthorized callers get one uniform denial
// and nothing happens.
type Router struct {
	users          repository.UserRepository
	links          repository.LinkRepository
	sender         telegram.Sender
	isAdmin        func(int64) bool
	broadcastDelay time.Duration
	logger         *zap.Logger
}

func NewRouter(
	users repository.UserRepository,
	links repository.LinkRepository,
	sender telegram.Sender,
	isAdmin func(int64) bool,
	broadcastDelay time.Duration,
	logger *zap.Logger,
) *Router {
	return &Router{
		users:          users,
		links:          links,
		sender:         sender,
		isAdmin:        isAdmin,
		broadcastDelay: broadcastDelay,
		logger:         logger,
	}
}

// Handle runs one admin subcommand. Every invocation produces exactly one
// visible reply (broadcast additionally edits its progress message).
func (r *Router) Handle(ctx context.Context, chatID int64, caller telegram.Member, sub, args string) {
	if !r.isAdmin(caller.ID) {
		r.reply(ctx, chatID, deniedReply)
		return
	}

	switch strings.ToLower(sub) {
	case "broadcast":
		r.Broadcast(ctx, chatID, args)
	case "stats":
		r.Stats(ctx, chatID)
	case "users":
		r.Users(ctx, chatID)
	case "test":
		r.Test(ctx, chatID, caller)
	case "help", "":
		r.Help(ctx, chatID)
	default:
		r.reply(ctx, chatID, "❌ Comando não reconhecido. Use `/admin help` para ver os comandos disponíveis.")
	}
}

// Broadcast fans the text out to every active user. One recipient failing
// never aborts the rest; progress is edited into the status message every
// ten sends and a final summary closes it out.
func (r *Router) Broadcast(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		r.reply(ctx, chatID, "❌ Você precisa fornecer uma mensagem para o broadcast.\n\nExemplo: `/admin broadcast Olá pessoal!`")
		return
	}

	users, err := r.users.ListActive(ctx)
	if err != nil {
		r.logger.Error("list users for broadcast", zap.Error(err))
		users = nil
	}
	if len(users) == 0 {
		r.reply(ctx, chatID, "❌ Nenhum usuário ativo encontrado.")
		return
	}

	jobID := uuid.NewString()
	r.logger.Info("broadcast started",
		zap.String("job_id", jobID),
		zap.Int("recipients", len(users)))

	statusID, err := r.sender.SendMessage(ctx, chatID, "📤 Iniciando broadcast...")
	if err != nil {
		r.logger.Error("send broadcast status", zap.String("job_id", jobID), zap.Error(err))
	}

	success, failed := 0, 0
	for i, user := range users {
		if ctx.Err() != nil {
			break
		}

		if _, err := r.sender.SendMessage(ctx, user.UserID, text); err != nil {
			failed++
			metrics.BroadcastFailed.Inc()
			r.logger.Error("broadcast delivery failed",
				zap.String("job_id", jobID),
				zap.Int64("user_id", user.UserID),
				zap.Error(err))
		} else {
			success++
			metrics.BroadcastSent.Inc()
		}

		if (i+1)%10 == 0 && statusID != 0 {
			progress := fmt.Sprintf("📤 Enviando broadcast... %d/%d\n✅ Sucesso: %d\n❌ Erros: %d",
				i+1, len(users), success, failed)
			if err := r.sender.EditMessage(ctx, chatID, statusID, progress); err != nil {
				r.logger.Error("edit broadcast progress", zap.String("job_id", jobID), zap.Error(err))
			}
		}

		sleepCtx(ctx, r.broadcastDelay)
	}

	summary := fmt.Sprintf("📢 *Broadcast Concluído*\n\n✅ *Enviados:* %d\n❌ *Erros:* %d\n👥 *Total:* %d",
		success, failed, len(users))
	if statusID != 0 {
		if err := r.sender.EditMessage(ctx, chatID, statusID, summary); err != nil {
			r.logger.Error("edit broadcast summary", zap.String("job_id", jobID), zap.Error(err))
		}
	} else {
		r.reply(ctx, chatID, summary)
	}

	r.logger.Info("broadcast finished",
		zap.String("job_id", jobID),
		zap.Int("success", success),
		zap.Int("failed", failed))
}

// Stats replies with totals, funnel distribution, recent click stats and
// the latest members. Each aggregate that fails is simply omitted.
func (r *Router) Stats(ctx context.Context, chatID int64) {
	var b strings.Builder
	b.WriteString("📊 *Estatísticas Detalhadas*\n\n")

	total, err := r.users.CountActive(ctx)
	if err != nil {
		r.logger.Error("count active users", zap.Error(err))
	}
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	newToday, err := r.users.CountJoinedSince(ctx, midnight)
	if err != nil {
		r.logger.Error("count new users today", zap.Error(err))
	}
	newWeek, err := r.users.CountJoinedSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		r.logger.Error("count new users this week", zap.Error(err))
	}

	fmt.Fprintf(&b, "👥 *Total de Usuários:* %d\n", total)
	fmt.Fprintf(&b, "🆕 *Novos Hoje:* %d\n", newToday)
	fmt.Fprintf(&b, "📅 *Novos esta Semana:* %d\n\n", newWeek)

	if dist, err := r.users.FunnelDistribution(ctx); err != nil {
		r.logger.Error("funnel distribution", zap.Error(err))
	} else if len(dist) > 0 {
		b.WriteString("🎯 *Funil de Conversão:*\n")
		for _, fc := range dist {
			fmt.Fprintf(&b, "   • %s: %d\n", funnel.StepName(fc.FunnelStep), fc.Count)
		}
		b.WriteString("\n")
	}

	if clickStats, err := r.links.ClickStats(ctx, "", 7); err != nil {
		r.logger.Error("link click stats", zap.Error(err))
	} else if len(clickStats) > 0 {
		b.WriteString("🔗 *Cliques em Links (7 dias):*\n")
		for _, cs := range clickStats {
			fmt.Fprintf(&b, "   • %s: %d cliques (%d usuários únicos)\n",
				cs.LinkType, cs.Clicks, cs.UniqueUsers)
		}
		b.WriteString("\n")
	}

	if recent, err := r.users.ListRecent(ctx, 5); err != nil {
		r.logger.Error("list recent users", zap.Error(err))
	} else if len(recent) > 0 {
		b.WriteString("👤 *Usuários Recentes:*\n")
		for _, u := range recent {
			username := "Sem username"
			if u.Username != "" {
				username = "@" + u.Username
			}
			fmt.Fprintf(&b, "   • %s (%s) - Passo %d\n", u.FirstName, username, u.FunnelStep)
		}
	}

	r.reply(ctx, chatID, b.String())
}

// Users replies with the twenty most recent members and their funnel stage.
func (r *Router) Users(ctx context.Context, chatID int64) {
	users, err := r.users.ListRecent(ctx, 20)
	if err != nil {
		r.logger.Error("list recent users", zap.Error(err))
		users = nil
	}
	if len(users) == 0 {
		r.reply(ctx, chatID, "❌ Nenhum usuário encontrado.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 *Lista de Usuários* (últimos %d)\n\n", len(users))
	for _, u := range users {
		username := "Sem username"
		if u.Username != "" {
			username = "@" + u.Username
		}
		fmt.Fprintf(&b, "*%s*\n", u.FirstName)
		fmt.Fprintf(&b, "   • ID: `%d`\n", u.UserID)
		fmt.Fprintf(&b, "   • Username: %s\n", username)
		fmt.Fprintf(&b, "   • Entrou: %s\n", u.JoinedAt.Format("02/01/2006 15:04"))
		fmt.Fprintf(&b, "   • Funil: %s\n\n", funnel.StepName(u.FunnelStep))
	}

	r.reply(ctx, chatID, b.String())
}

// Test replies with a diagnostic echo of ids and timestamp.
func (r *Router) Test(ctx context.Context, chatID int64, caller telegram.Member) {
	text := fmt.Sprintf(
		"🧪 *Mensagem de Teste*\n\n✅ Bot funcionando perfeitamente!\n\n📊 *Informações do Sistema:*\n• Chat ID: `%d`\n• User ID: `%d`\n• Timestamp: %s\n• Administrador: ✅ Sim",
		chatID, caller.ID, time.Now().Format("02/01/2006 15:04:05"))
	r.reply(ctx, chatID, text)
}

// Help replies with the admin command reference.
func (r *Router) Help(ctx context.Context, chatID int64) {
	help := "🔧 *Comandos de Administração*\n\n" +
		"📢 `/admin broadcast <mensagem>` - Enviar mensagem para todos os usuários\n" +
		"📊 `/admin stats` - Estatísticas detalhadas do bot\n" +
		"👥 `/admin users` - Lista dos usuários recentes\n" +
		"🧪 `/admin test` - Mensagem de teste do sistema\n" +
		"❓ `/admin help` - Esta mensagem de ajuda\n\n" +
		"⚠️ *Nota:* Apenas administradores podem usar estes comandos."
	r.reply(ctx, chatID, help)
}

// IsAdmin exposes the allowlist check for other handlers.
func (r *Router) IsAdmin(userID int64) bool {
	return r.isAdmin(userID)
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.sender.SendMessage(ctx, chatID, text); err != nil {
		r.logger.Error("send admin reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
