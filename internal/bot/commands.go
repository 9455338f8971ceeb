package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mthleonn/bot-auge/internal/funnel"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"go.uber.org/zap"
)

const genericErrorReply = "❌ Ocorreu um erro interno. Tente novamente em instantes."

// HandleCommand dispatches one slash command. Known commands always produce
// exactly one reply, even when something fails internally; unrecognized
// commands are ignored to keep group chats clean.
func (b *Bot) HandleCommand(ctx context.Context, m Message, name, args string) {
	b.refreshUser(ctx, m.Sender)

	switch strings.ToLower(name) {
	case "start":
		b.cmdStart(ctx, m)
	case "help":
		b.cmdHelp(ctx, m)
	case "status":
		b.cmdStatus(ctx, m)
	case "stats":
		b.cmdStats(ctx, m)
	case "links":
		b.cmdLinks(ctx, m)
	case "meeting", "reuniao":
		b.cmdMeeting(ctx, m)
	case "setmeeting":
		b.cmdSetMeeting(ctx, m, args)
	case "testwelcome":
		b.cmdTestWelcome(ctx, m)
	case "admin":
		sub, rest := splitCommand(args)
		b.admins.Handle(ctx, m.ChatID, m.Sender, sub, rest)
	case "broadcast":
		b.admins.Handle(ctx, m.ChatID, m.Sender, "broadcast", args)
	case "users":
		b.admins.Handle(ctx, m.ChatID, m.Sender, "users", "")
	case "test":
		b.admins.Handle(ctx, m.ChatID, m.Sender, "test", "")
	case "adminhelp":
		b.admins.Handle(ctx, m.ChatID, m.Sender, "help", "")
	}
}

func (b *Bot) cmdStart(ctx context.Context, m Message) {
	var text string
	if b.isMonitoredGroup(m.ChatID) {
		text = fmt.Sprintf("👋 Olá %s! Bem-vindo(a) ao nosso grupo de trading!\n\n📚 Use /help para ver os comandos disponíveis.", m.Sender.FirstName)
	} else {
		text = fmt.Sprintf("🎯 Olá %s! Bot Auge Traders ativo!\n\n✅ Sistema funcionando perfeitamente!\n\n📋 Use /help para ver os comandos disponíveis.", m.Sender.FirstName)
	}
	b.reply(ctx, m.ChatID, text)
}

func (b *Bot) cmdHelp(ctx context.Context, m Message) {
	var bld strings.Builder
	bld.WriteString("🤖 *Comandos Disponíveis:*\n\n")
	bld.WriteString("📋 `/start` - Iniciar o bot\n")
	bld.WriteString("❓ `/help` - Esta mensagem de ajuda\n")
	bld.WriteString("🩺 `/status` - Status do bot\n")
	bld.WriteString("📊 `/stats` - Suas estatísticas\n")
	bld.WriteString("🔗 `/links` - Estatísticas de links\n")
	bld.WriteString("📹 `/meeting` - Link da reunião\n\n")

	if b.admins.IsAdmin(m.Sender.ID) {
		bld.WriteString("🔧 *Comandos de Admin:*\n")
		bld.WriteString("📢 `/broadcast <mensagem>` - Enviar para todos\n")
		bld.WriteString("👥 `/users` - Lista usuários recentes\n")
		bld.WriteString("🧪 `/test` - Teste do sistema\n")
		bld.WriteString("🔗 `/setmeeting <link>` - Define link da reunião\n")
		bld.WriteString("⚙️ `/admin help` - Ajuda de administração\n\n")
	}

	bld.WriteString("💡 *Dica:* Interaja no grupo para aproveitar ao máximo nossa comunidade!")
	b.reply(ctx, m.ChatID, bld.String())
}

func (b *Bot) cmdStatus(ctx context.Context, m Message) {
	total, err := b.users.CountActive(ctx)
	if err != nil {
		b.logger.Error("count users for status", zap.Error(err))
	}

	text := fmt.Sprintf(`✅ *Bot Auge - Status*

🔧 *Componentes:*
• Banco de dados: ✅ Conectado
• Funil automático: ✅ Ativo
• Moderação: ✅ Ativa
• Rastreamento de links: ✅ Ativo

📊 *Estatísticas:*
• Total de usuários: %d
• Status geral: Online`, total)
	b.reply(ctx, m.ChatID, text)
}

func (b *Bot) cmdStats(ctx context.Context, m Message) {
	user, err := b.users.GetByID(ctx, m.Sender.ID)
	if err != nil {
		b.logger.Error("lookup user for stats", zap.Int64("user_id", m.Sender.ID), zap.Error(err))
		b.reply(ctx, m.ChatID, genericErrorReply)
		return
	}
	if user == nil {
		b.reply(ctx, m.ChatID, "❌ Usuário não encontrado no banco de dados.")
		return
	}

	days := int(time.Since(user.JoinedAt).Hours() / 24)
	totalClicks := b.tracker.CountRecent(ctx, user.UserID, 30)

	text := fmt.Sprintf(`📊 *Suas Estatísticas:*

👤 *Nome:* %s
📅 *No grupo há:* %d dias
🎯 *Passo do funil:* %s
🔗 *Cliques em links:* %d (últimos 30 dias)

💡 Continue participando para evoluir ainda mais!`,
		user.FirstName, days, funnel.StepName(user.FunnelStep), totalClicks)
	b.reply(ctx, m.ChatID, text)
}

func (b *Bot) cmdLinks(ctx context.Context, m Message) {
	b.tracker.RecordCommandClick(ctx, m.Sender.ID, "links_command")
	report := b.tracker.Report(ctx, m.ChatID, 7)
	b.reply(ctx, m.ChatID, report)
}

func (b *Bot) cmdMeeting(ctx context.Context, m Message) {
	link, err := b.settings.Get(ctx, "meeting_link")
	if err != nil {
		b.logger.Error("get meeting link", zap.Error(err))
	}
	if link == "" {
		link = b.cfg.MeetingLink
	}

	b.tracker.RecordCommandClick(ctx, m.Sender.ID, "meeting_link")

	text := fmt.Sprintf(`📹 *Link da Reunião:*

🔗 [Clique aqui para entrar na reunião](%s)

⏰ *Horários das reuniões:*
• Segunda-feira: 20:00
• Quarta-feira: 20:00
• Sexta-feira: 20:00

💡 *Dica:* Chegue alguns minutos antes para testar áudio e vídeo!`, link)
	b.reply(ctx, m.ChatID, text)
}

func (b *Bot) cmdSetMeeting(ctx context.Context, m Message, args string) {
	if !b.admins.IsAdmin(m.Sender.ID) {
		b.reply(ctx, m.ChatID, "❌ Comando disponível apenas para administradores.")
		return
	}

	newLink := strings.TrimSpace(args)
	if newLink == "" {
		current, err := b.settings.Get(ctx, "meeting_link")
		if err != nil || current == "" {
			current = b.cfg.MeetingLink
		}
		text := fmt.Sprintf("🔗 *Configurar Link da Reunião*\n\n*Link atual:* %s\n\n*Como usar:*\n`/setmeeting https://meet.google.com/seu-novo-link`", current)
		b.reply(ctx, m.ChatID, text)
		return
	}

	if !strings.HasPrefix(newLink, "http://") && !strings.HasPrefix(newLink, "https://") {
		b.reply(ctx, m.ChatID, "❌ Por favor, forneça um link válido (deve começar com http:// ou https://)")
		return
	}

	if err := b.settings.Set(ctx, "meeting_link", newLink); err != nil {
		b.logger.Error("set meeting link", zap.Error(err))
		b.reply(ctx, m.ChatID, genericErrorReply)
		return
	}

	b.logger.Info("meeting link updated",
		zap.Int64("user_id", m.Sender.ID),
		zap.String("link", newLink))
	b.reply(ctx, m.ChatID, fmt.Sprintf("✅ *Link da reunião atualizado!*\n\n🔗 *Novo link:* %s", newLink))
}

func (b *Bot) cmdTestWelcome(ctx context.Context, m Message) {
	b.welcome.SendWelcome(ctx, m.ChatID, telegram.Member{
		ID:        m.Sender.ID,
		Username:  m.Sender.Username,
		FirstName: m.Sender.FirstName,
		LastName:  m.Sender.LastName,
	})
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("send command reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func splitCommand(args string) (sub, rest string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", ""
	}
	parts := strings.SplitN(args, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
