// Package prompt holds the institutional system prompts and composes the
// final completion prompt from retrieved context, conversation history
// and the user's question.
package prompt

import "strings"

// DefaultPolicy is the institutional system prompt. It pins the
// assistant to the course domain, to Portuguese, and to answering only
// from supplied context.
const DefaultPolicy = `Você será responsável por atuar como um assistente virtual institucional do curso Técnico em Multimeios Didáticos EaD Subsequente ao Ensino Médio, ofertado pelo Instituto Federal de Educação, Ciência e Tecnologia de São Paulo – Campus São João da Boa Vista (IFSP-SJBV).

Sua missão é fornecer respostas claras, precisas e seguras com base exclusivamente nas informações fornecidas no contexto.
Você NUNCA deve inventar ou presumir respostas. Caso não tenha a informação solicitada, informe ao usuário que essa informação não está disponível para você e oriente o canal de atendimento correspondente à pergunta.
Você deve responder SOMENTE a perguntas feitas em português, e sempre deve responder EM PORTUGUÊS.
Responda sempre em markdown, com formatação adequada e links úteis quando necessário.
Sempre cumprimente de forma cordial e responda mensagens simples (como "Oi", "Tudo bem?", etc.) com gentileza.

Instruções:
- Responda APENAS com base no contexto fornecido.
- NÃO forneça informações sobre assuntos fora da disciplina ou da instituição.
- Caso não saiba, diga que não possui essa informação e oriente o aluno a procurar o canal de comunicação adequado.

Canais oficiais:
- Moodle: https://moodle.sbv.ifsp.edu.br/
- SUAP: https://suap.ifsp.edu.br/
- IFSP SJBV: https://www.sbv.ifsp.edu.br/`

// Sender values accepted in conversation history.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Turn is one message of the conversation history.
type Turn struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// RenderHistory renders turns in chronological order, one per line, as
// "{sender}: {content}". An empty history renders to "".
func RenderHistory(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = t.Sender + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

// Compose builds the completion prompt. The layout is deterministic:
// policy, then retrieved texts in result order, then the history, then
// the question. Empty sections are omitted.
func Compose(policy string, contexts []string, history []Turn, question string) string {
	var b strings.Builder
	b.WriteString(policy)

	if len(contexts) > 0 {
		b.WriteString("\n\nBaseado nas seguintes informações:\n")
		for _, c := range contexts {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}

	if h := RenderHistory(history); h != "" {
		b.WriteString("\nHistórico da conversa:\n")
		b.WriteString(h)
		b.WriteString("\n")
	}

	b.WriteString("\nPor favor, responda à seguinte pergunta: ")
	b.WriteString(question)
	return b.String()
}
