// Package assistant orchestrates one question end to end: gate the
// input, retrieve scoped context, compose the prompt, answer, and log
// usage.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sagefy-edu/sagefy/internal/gate"
	"github.com/sagefy-edu/sagefy/internal/identity"
	"github.com/sagefy-edu/sagefy/internal/llm"
	"github.com/sagefy-edu/sagefy/internal/prompt"
	"github.com/sagefy-edu/sagefy/internal/retrieve"
	"github.com/sagefy-edu/sagefy/internal/usage"
	"github.com/sagefy-edu/sagefy/internal/vectorstore"
)

// Sentinel errors, mapped to HTTP statuses by the API layer.
var (
	// ErrInvalidInput marks a malformed request: empty question or a
	// history turn with an unknown sender.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrieval marks a failure while resolving context.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrCompletion marks a failure while generating the answer.
	ErrCompletion = errors.New("completion failed")
)

const (
	// maxHistoryTurns bounds the history window; older turns are dropped.
	maxHistoryTurns = 6

	answerMaxTokens   = 2000
	answerTemperature = 0.6

	usageWriteTimeout = 10 * time.Second
)

// Request is one question from an authenticated caller.
type Request struct {
	Question string
	History  []prompt.Turn
	Caller   identity.Identity
}

// Response is the assistant's answer.
type Response struct {
	RequestID string
	Answer    string
	SmallTalk bool
	// History is the conversation including this exchange.
	History []prompt.Turn
}

// Assistant answers course questions. It is stateless between calls;
// callers carry the history.
type Assistant struct {
	gate      *gate.Gate
	retriever *retrieve.Retriever
	client    llm.Client
	sink      usage.Sink
	policy    string
	logger    *slog.Logger

	wg sync.WaitGroup
}

// New creates an Assistant. A nil sink disables usage telemetry.
func New(g *gate.Gate, r *retrieve.Retriever, client llm.Client, sink usage.Sink, logger *slog.Logger) *Assistant {
	if sink == nil {
		sink = usage.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		gate:      g,
		retriever: r,
		client:    client,
		sink:      sink,
		policy:    prompt.DefaultPolicy,
		logger:    logger,
	}
}

// Ask answers one question. Small talk short-circuits retrieval and
// usage logging; domain questions run the full pipeline.
func (a *Assistant) Ask(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	history, err := validate(question, req.History)
	if err != nil {
		return Response{}, err
	}

	requestID := uuid.NewString()
	logger := a.logger.With("request_id", requestID)

	// The gate fails open internally; an error here is a dead context.
	verdict, err := a.gate.Check(ctx, question, history)
	if err != nil {
		return Response{}, err
	}
	if verdict.IsSmallTalk {
		logger.Info("small talk answered", "user", req.Caller.Email)
		return Response{
			RequestID: requestID,
			Answer:    verdict.Response,
			SmallTalk: true,
			History:   appendExchange(history, question, verdict.Response),
		}, nil
	}

	results, err := a.retriever.Retrieve(ctx, question, req.Caller.Scope())
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Content
	}

	finalPrompt := prompt.Compose(a.policy, contexts, history, question)
	completion, err := a.client.Complete(ctx, finalPrompt, llm.CompleteOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	a.logUsage(logger, requestID, req, finalPrompt, completion, results)

	logger.Info("question answered",
		"user", req.Caller.Email,
		"chunks", len(results),
		"total_tokens", completion.Usage.TotalTokens)
	return Response{
		RequestID: requestID,
		Answer:    completion.Text,
		History:   appendExchange(history, question, completion.Text),
	}, nil
}

// Close waits for in-flight usage writes to finish.
func (a *Assistant) Close() {
	a.wg.Wait()
}

// logUsage writes telemetry without blocking the response. A failed
// write is logged and dropped; it never fails the request.
func (a *Assistant) logUsage(logger *slog.Logger, requestID string, req Request, finalPrompt string, completion *llm.Completion, results []vectorstore.Result) {
	categories := make([]string, 0, len(results))
	subcategories := make([]string, 0, len(results))
	for _, r := range results {
		if r.Metadata.Category != "" {
			categories = append(categories, r.Metadata.Category)
		}
		if r.Metadata.Subcategory != "" {
			subcategories = append(subcategories, r.Metadata.Subcategory)
		}
	}

	rec := usage.Record{
		ID:               uuid.NewString(),
		RequestID:        requestID,
		UserEmail:        req.Caller.Email,
		UserRole:         req.Caller.Role,
		ClassCode:        req.Caller.ClassCode,
		Categories:       categories,
		Subcategories:    subcategories,
		Prompt:           finalPrompt,
		Response:         completion.Text,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
		CreatedAt:        time.Now().UTC(),
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), usageWriteTimeout)
		defer cancel()
		if err := a.sink.Log(ctx, rec); err != nil {
			logger.Warn("usage record dropped", "error", err)
		}
	}()
}

// validate checks the question and history and returns the bounded
// history window.
func validate(question string, history []prompt.Turn) ([]prompt.Turn, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	for _, t := range history {
		if t.Sender != prompt.SenderUser && t.Sender != prompt.SenderAssistant {
			return nil, fmt.Errorf("%w: unknown history sender %q", ErrInvalidInput, t.Sender)
		}
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	return history, nil
}

func appendExchange(history []prompt.Turn, question, answer string) []prompt.Turn {
	out := make([]prompt.Turn, 0, len(history)+2)
	out = append(out, history...)
	out = append(out,
		prompt.Turn{Sender: prompt.SenderUser, Content: question},
		prompt.Turn{Sender: prompt.SenderAssistant, Content: answer},
	)
	return out
}
