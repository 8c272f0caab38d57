// Package ai answers free-form questions from users who are not filling the lead form.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/flow"
	"github.com/m3rciful/leadbot/core/logger"
)

// DefaultSystemPrompt steers the assistant towards short answers and the /start form.
const DefaultSystemPrompt = "Eres un asistente de KarmaBox. Responde breve y claro. " +
	"Si el usuario quiere registrarse o dejar sus datos, pídele que escriba /start para iniciar el formulario. " +
	"Si pregunta dudas (horario, servicios, precios, ubicación), contesta de forma útil."

// Options tunes a chain Responder.
type Options struct {
	SystemPrompt string
	HistoryTurns int
}

// Responder runs each question through a prompt template and a chat model.
type Responder struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	history *History
	system  string
}

// NewResponder compiles the prompt chain around chatModel.
func NewResponder(ctx context.Context, chatModel model.BaseChatModel, opts Options) (*Responder, error) {
	if chatModel == nil {
		return nil, errors.New("ai: nil chat model")
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("ai: compile chat chain: %w", err)
	}

	return &Responder{
		chain:   runnable,
		history: NewHistory(opts.HistoryTurns),
		system:  opts.SystemPrompt,
	}, nil
}

// Reply never fails: errors and empty answers yield the standard apology.
func (r *Responder) Reply(ctx context.Context, userID, text string) string {
	input := map[string]any{
		"system":  r.system,
		"history": r.history.Messages(userID),
		"query":   text,
	}

	msg, err := r.chain.Invoke(ctx, input)
	if err != nil {
		logger.Warn(ctx, "ai", "reply.failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return flow.MsgFallbackUnavailable
	}
	var answer string
	if msg != nil {
		answer = strings.TrimSpace(msg.Content)
	}
	if answer == "" {
		logger.Warn(ctx, "ai", "reply.empty", slog.String("status", "fail"))
		return flow.MsgFallbackUnavailable
	}

	if err := ctx.Err(); err != nil {
		logger.Warn(ctx, "ai", "reply.abandoned", slog.String("status", "cancelled"))
		return flow.MsgFallbackUnavailable
	}

	r.history.Append(userID, schema.UserMessage(text), schema.AssistantMessage(answer, nil))
	logger.Debug(ctx, "ai", "reply.ok",
		slog.String("status", "ok"),
		slog.Int("length", len(answer)),
	)
	return answer
}

// New returns the configured responder: an Ark-backed chain when credentials are
// present, otherwise a Static one.
func New(ctx context.Context, cfg config.AIConfig) (flow.Responder, error) {
	if !cfg.Enabled() {
		logger.Info(ctx, "ai", "responder.static", slog.String("reason", "no_credentials"))
		return Static(MsgNotConfigured), nil
	}
	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewResponder(ctx, chatModel, Options{
		SystemPrompt: cfg.SystemPrompt,
		HistoryTurns: cfg.HistoryTurns,
	})
}
