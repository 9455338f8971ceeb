package funnel

import "fmt"

func message24h(firstName string) string {
	return fmt.Sprintf(`👋 Olá, %s!

🎯 *Bem-vindo(a) ao nosso grupo de traders!*

Vi que você entrou no grupo ontem e queria te dar algumas dicas importantes para aproveitar ao máximo nossa comunidade:

📚 *Para iniciantes:*
• Leia as mensagens fixadas do grupo
• Observe as análises compartilhadas pelos membros
• Não tenha pressa - aprendizado leva tempo

💡 *Dicas importantes:*
• Nunca invista mais do que pode perder
• Sempre faça sua própria análise
• Gerencie seus riscos adequadamente

❓ *Tem alguma dúvida?* Fique à vontade para perguntar no grupo!

🚀 Vamos juntos nessa jornada de aprendizado!`, firstName)
}

func message48h(firstName, duvidasLink string) string {
	return fmt.Sprintf(`📈 Oi %s!

🎯 *Como está sendo sua experiência no grupo?*

Já faz 2 dias que você está conosco e espero que esteja aproveitando o conteúdo compartilhado!

💪 *Próximos passos para acelerar seu aprendizado:*

1️⃣ *Participe ativamente:*
   • Comente nas análises
   • Compartilhe suas dúvidas
   • Interaja com outros membros

2️⃣ *Estude consistentemente:*
   • Dedique pelo menos 30min/dia
   • Pratique em conta demo primeiro
   • Anote seus aprendizados

💬 *Grupo de Dúvidas:*
Para perguntas mais específicas, temos um grupo dedicado:
%s

🎯 *Lembre-se:* Consistência é a chave do sucesso!

📊 Continue acompanhando nossas análises e em breve você estará fazendo as suas próprias!`, firstName, duvidasLink)
}

func message72h(firstName string) string {
	return fmt.Sprintf(`🚀 %s, você está evoluindo!

🎉 *Parabéns por completar 3 dias conosco!*

Essa dedicação já mostra que você tem o mindset certo para o trading.

🎯 *Chegou a hora de dar o próximo passo:*

📊 *Análise Prática:*
• Comece a fazer suas próprias análises
• Use as ferramentas que ensinamos
• Compartilhe suas ideias no grupo

💰 *Gestão de Capital:*
• Defina seu capital de risco
• Estabeleça metas realistas
• Nunca arrisque mais que 2%% por operação

💡 *Dica especial:*
Os traders mais bem-sucedidos são aqueles que nunca param de aprender. Continue estudando, praticando e interagindo!

🔥 *Você tem potencial para ser um grande trader!*

Qualquer dúvida, estamos aqui para ajudar. Vamos juntos rumo ao sucesso! 🚀`, firstName)
}

// StepName renders a funnel step as the label used in stats and listings.
func StepName(step int) string {
	switch step {
	case 0:
		return "Recém-chegado"
	case 1:
		return "Mensagem 24h recebida"
	case 2:
		return "Mensagem 48h recebida"
	case 3:
		return "Mensagem 72h recebida"
	default:
		return fmt.Sprintf("Passo %d", step)
	}
}
