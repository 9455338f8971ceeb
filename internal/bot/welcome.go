package bot

import (
	"context"
	"fmt"

	"github.com/mthleonn/bot-auge/internal/config"
	"github.com/mthleonn/bot-auge/internal/repository"
	"github.com/mthleonn/bot-auge/internal/telegram"
	"go.uber.org/zap"
)

// Welcome greets members joining a group and registers them so the funnel
// can pick them up. Templates and buttons vary by which group was joined.
type Welcome struct {
	sender telegram.Sender
	users  repository.UserRepository
	cfg    *config.Config
	logger *zap.Logger
}

func NewWelcome(sender telegram.Sender, users repository.UserRepository, cfg *config.Config, logger *zap.Logger) *Welcome {
	return &Welcome{sender: sender, users: users, cfg: cfg, logger: logger}
}

// HandleNewMembers processes a join event. The bot's own join triggers the
// activation message instead of a member welcome. Per-member failures are
// logged and do not affect the other joiners.
func (w *Welcome) HandleNewMembers(ctx context.Context, chatID int64, botID int64, members []telegram.Member) {
	for _, member := range members {
		if member.ID == botID {
			w.sendBotActivation(ctx, chatID)
			continue
		}

		info := repository.MemberInfo{
			UserID:    member.ID,
			Username:  member.Username,
			FirstName: member.FirstName,
			LastName:  member.LastName,
		}
		if err := w.users.Upsert(ctx, info); err != nil {
			w.logger.Error("register new member",
				zap.Int64("user_id", member.ID),
				zap.Error(err))
		}

		w.SendWelcome(ctx, chatID, member)
		w.logger.Info("new member processed",
			zap.Int64("user_id", member.ID),
			zap.Int64("chat_id", chatID))
	}
}

// SendWelcome sends the group-appropriate welcome for one member. Also used
// by the /testwelcome diagnostic with an explicitly constructed Member.
func (w *Welcome) SendWelcome(ctx context.Context, chatID int64, member telegram.Member) {
	name := member.FirstName
	if name == "" {
		name = member.Username
	}
	if name == "" {
		name = "Novo membro"
	}

	text, buttons := w.composeWelcome(chatID, name)
	if _, err := w.sender.SendMessage(ctx, chatID, text, buttons...); err != nil {
		w.logger.Error("send welcome message",
			zap.Int64("user_id", member.ID),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (w *Welcome) composeWelcome(chatID int64, name string) (string, [][]telegram.Button) {
	switch chatID {
	case w.cfg.GroupChatID:
		text := fmt.Sprintf(`*🎯 Bem-vindo(a) ao Auge Traders! 🎯*

Olá %s! 👋

📊 Seja muito bem-vindo(a) ao *Auge Traders*!

🚀 *Aqui você receberá:*
• Análises diárias do *pré-mercado* às 6h
• Possíveis *entradas e saídas* pelos mentores *Rafael* e *Daniel*
• Estratégias testadas e comprovadas
• Acompanhamento em tempo real
• Comunidade de traders consistentes

💡 *Para aproveitar ao máximo:*
1️⃣ Fique atento às análises matinais
2️⃣ Siga o plano de trade
3️⃣ Mantenha a disciplina
4️⃣ Participe das discussões
5️⃣ Tire suas dúvidas no grupo específico

⏰ *Análises enviadas às 6h* todos os dias úteis!

💪 Vamos conquistar a consistência juntos! 🔥`, name)
		buttons := [][]telegram.Button{
			{{Text: "🚀 Mentoria Completa", URL: w.cfg.MentoriaLink}},
			{{Text: "❓ Grupo de Dúvidas", URL: w.cfg.DuvidasGroupLink}},
		}
		return text, buttons

	case w.cfg.DuvidasGroupChatID:
		text := fmt.Sprintf(`*❓ Bem-vindo(a) ao Suporte Auge! ❓*

Olá %s! 👋

🆘 Este é o grupo de suporte e dúvidas!

📋 Como funciona:
• Faça suas perguntas de forma clara
• Aguarde a resposta da nossa equipe
• Ajude outros membros quando possível
• Mantenha o foco em dúvidas técnicas

⚡ Resposta rápida garantida!`, name)
		buttons := [][]telegram.Button{
			{{Text: "🔙 Grupo Principal", URL: "https://t.me/AugeGrupo"}},
			{{Text: "📖 FAQ", URL: "https://auge.com.br/faq"}},
		}
		return text, buttons

	default:
		text := fmt.Sprintf(`*👋 Olá! Sou o Bot Auge!*

Olá %s! 👋

Obrigado por me adicionar ao grupo!

🤖 Eu sou o Bot Auge e posso ajudar com:
• Mensagens de boas-vindas
• Moderação básica
• Estatísticas do grupo
• Links úteis

⚙️ Configure-me como administrador para funcionar melhor!`, name)
		buttons := [][]telegram.Button{
			{{Text: "🌐 Conheça a Auge", URL: "https://auge.com.br"}},
		}
		return text, buttons
	}
}

func (w *Welcome) sendBotActivation(ctx context.Context, chatID int64) {
	text := `🤖 *Bot Auge Ativado!* 🤖

✅ Olá! Eu sou o Bot Auge e agora estou ativo neste grupo!

🔧 *Funcionalidades disponíveis:*
• Mensagens de boas-vindas automáticas
• Moderação de spam
• Comandos administrativos
• Estatísticas do grupo
• Sistema de funil automático

⚙️ *Para melhor funcionamento:*
1. Me torne administrador
2. Configure as variáveis de ambiente
3. Use /help para ver comandos

🚀 *Vamos começar!*`

	if _, err := w.sender.SendMessage(ctx, chatID, text); err != nil {
		w.logger.Error("send bot activation message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	w.logger.Info("bot added to group", zap.Int64("chat_id", chatID))
}
