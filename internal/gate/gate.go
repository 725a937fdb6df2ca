// Package gate classifies incoming questions as small talk or domain
// questions before any retrieval work happens.
package gate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/sagefy-edu/sagefy/internal/llm"
	"github.com/sagefy-edu/sagefy/internal/prompt"
)

// classifierPrompt instructs the model to answer with a strict JSON
// verdict. Small talk gets a friendly canned reply in the same call.
const classifierPrompt = `Você é um agente que identifica se a entrada do usuário é smalltalk ou uma pergunta relevante ao domínio.

Você sabe responder sobre o curso Técnico em Multimeios Didáticos EaD Subsequente ao Ensino Médio, ofertado pelo Instituto Federal de Educação, Ciência e Tecnologia de São Paulo – Campus São João da Boa Vista (IFSP-SJBV).

Você PODE responder perguntas sobre:
- Dados da instituição
- Requisitos para ingresso no curso
- Processo seletivo e reserva de vagas
- Acesso às plataformas (Moodle, SUAP, bibliotecas)
- Datas e prazos importantes
- Estrutura curricular e disciplinas
- Atividades práticas e estágios
- Recursos e materiais didáticos
- Perguntas sobre o curso e dúvidas acadêmicas

Responda SOMENTE um JSON com duas chaves:
- is_smalltalk: true ou false
- smalltalk_response: se is_smalltalk for true, inclua uma resposta amigável; caso contrário, deixe vazio.`

// followupInstruction is appended to the classifier prompt when short
// followups should count as small talk.
const followupInstruction = `Continuações curtas da conversa (agradecimentos, confirmações, pedidos para repetir) também contam como smalltalk; use o histórico para identificá-las.`

const (
	classifierMaxTokens   = 300
	classifierTemperature = 0.0
)

// Result is the gate verdict for one question.
type Result struct {
	IsSmallTalk bool
	// Response is the canned reply; only set when IsSmallTalk is true.
	Response string
}

// Config tunes the gate.
type Config struct {
	// FollowupsAsSmalltalk instructs the classifier to count short
	// followups ("obrigado", "entendi") as small talk. The conversation
	// history is always part of the classification prompt; this flag
	// only changes how the classifier is told to read it.
	FollowupsAsSmalltalk bool

	// Timeout bounds the classification call.
	Timeout time.Duration
}

// Gate asks the model whether a question is small talk. It fails open:
// any classifier failure is treated as a domain question so the real
// pipeline gets a chance to answer.
type Gate struct {
	client llm.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Gate.
func New(client llm.Client, cfg Config, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Gate{client: client, cfg: cfg, logger: logger}
}

type verdict struct {
	IsSmalltalk       bool   `json:"is_smalltalk"`
	SmalltalkResponse string `json:"smalltalk_response"`
}

// Check classifies the question. It never returns an error for
// classifier or parse failures; only a canceled context aborts.
func (g *Gate) Check(ctx context.Context, question string, history []prompt.Turn) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	completion, err := g.client.Complete(callCtx, g.buildPrompt(question, history), llm.CompleteOptions{
		MaxTokens:   classifierMaxTokens,
		Temperature: classifierTemperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		g.logger.Warn("smalltalk classification failed, treating as domain question", "error", err)
		return Result{}, nil
	}

	var v verdict
	if err := json.Unmarshal([]byte(llm.StripCodeFences(completion.Text)), &v); err != nil {
		g.logger.Warn("unparseable smalltalk verdict, treating as domain question",
			"error", err, "raw", completion.Text)
		return Result{}, nil
	}

	if !v.IsSmalltalk {
		return Result{}, nil
	}
	return Result{IsSmallTalk: true, Response: v.SmalltalkResponse}, nil
}

func (g *Gate) buildPrompt(question string, history []prompt.Turn) string {
	var b strings.Builder
	b.WriteString(classifierPrompt)
	if g.cfg.FollowupsAsSmalltalk {
		b.WriteString("\n\n")
		b.WriteString(followupInstruction)
	}
	if h := prompt.RenderHistory(history); h != "" {
		b.WriteString("\n\nHistórico da conversa:\n")
		b.WriteString(h)
	}
	b.WriteString("\n\nEntrada do usuário: ")
	b.WriteString(question)
	return b.String()
}
