package relay

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/sherlock-relay/server/internal/agent/model"
	errx "github.com/sherlock-relay/server/internal/core/error"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

// Generator is the language-model agent the Responder talks to.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message, opts model.GenerateOptions) (*model.GenerateResult, error)
}

// ThreadID derives the conversation thread for a chat.
func ThreadID(prefix string, chatID int64) string {
	return prefix + strconv.FormatInt(chatID, 10)
}

// Responder turns an incoming chat message into the agent's reply.
type Responder struct {
	agent Generator
	cfg   Config
}

func NewResponder(agent Generator, cfg Config) *Responder {
	return &Responder{agent: agent, cfg: cfg.withDefaults()}
}

// Respond asks the agent for a reply scoped to the chat's thread. Generation
// errors are returned as-is (wrapped as a generation error) and never retried.
func (r *Responder) Respond(ctx context.Context, in IncomingMessage) (AgentReply, error) {
	threadID := ThreadID(r.cfg.ThreadPrefix, in.ChatID)

	logx.Info().
		Str("user_name", in.SenderName).
		Int64("chat_id", in.ChatID).
		Str("thread_id", threadID).
		Int("message_length", len(in.Text)).
		Msg("Examining the message")

	res, err := r.agent.Generate(ctx,
		[]*schema.Message{schema.UserMessage(in.Text)},
		model.GenerateOptions{
			ResourceID: r.cfg.ResourceID,
			ThreadID:   threadID,
			MaxSteps:   r.cfg.MaxSteps,
		},
	)
	if err != nil {
		logx.Error().Err(err).Int64("chat_id", in.ChatID).Str("thread_id", threadID).Msg("Generation failed")
		return AgentReply{}, errx.Generation(err)
	}

	text := ""
	if res != nil {
		text = res.Text
	}
	if strings.TrimSpace(text) == "" {
		logx.Warn().Int64("chat_id", in.ChatID).Msg("Agent returned no text, using fallback")
		text = r.cfg.FallbackText
	}

	logx.Info().
		Int64("chat_id", in.ChatID).
		Int("response_length", len(text)).
		Msg("Response formulated")

	return AgentReply{Text: text, ChatID: in.ChatID}, nil
}
