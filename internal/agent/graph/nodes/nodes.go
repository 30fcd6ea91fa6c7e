package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sherlock-relay/server/internal/agent/graph/conversations"
	"github.com/sherlock-relay/server/internal/agent/graph/prompts"
	"github.com/sherlock-relay/server/internal/agent/model"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

// NewInputConverterPreHandler copies the thread scope of the request into state.
func NewInputConverterPreHandler() func(context.Context, model.GenerateInput, *model.AppState) (model.GenerateInput, error) {
	return func(ctx context.Context, in model.GenerateInput, s *model.AppState) (model.GenerateInput, error) {
		if in.ThreadID == "" {
			return in, fmt.Errorf("thread id is required")
		}
		s.ThreadID = in.ThreadID
		s.ResourceID = in.ResourceID
		s.TotalCostUSD = 0
		s.Usage = nil
		return in, nil
	}
}

// NewInputConverterNode stores the incoming turns and assembles the model context:
// persona system prompt followed by the recent thread history.
func NewInputConverterNode(
	mm *conversations.MessagesManager,
	persona *model.PersonaConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.GenerateInput) ([]*schema.Message, error) {
		created, err := mm.EnsureThread(ctx, input.ThreadID, input.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("ensure thread: %w", err)
		}
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.ThreadCreated = created
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		var title string
		if !created {
			if title, err = mm.ThreadTitle(ctx, input.ThreadID); err != nil {
				logx.Warn().Err(err).Str("thread_id", input.ThreadID).Msg("could not load thread title")
				title = ""
			}
		}

		if err := mm.SaveTurns(ctx, input.ThreadID, input.Messages); err != nil {
			return nil, fmt.Errorf("save turns: %w", err)
		}

		systemPrompt, err := prompts.RenderPersonaSystem(ctx, persona, title)
		if err != nil {
			return nil, fmt.Errorf("render persona system prompt: %w", err)
		}

		messages, err := mm.BuildContext(ctx, input.ThreadID, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("build context: %w", err)
		}

		logx.Debug().
			Str("thread_id", input.ThreadID).
			Int("context_messages", len(messages)).
			Bool("thread_created", created).
			Msg("Context assembled")
		return messages, nil
	})
}

// NewPersonaModelPostHandler records usage cost and persists the assistant reply.
func NewPersonaModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return out, nil
		}

		inC, outC, totalC := recordUsage(out, state, modelName)
		if state.Usage != nil {
			logx.Debug().
				Str("thread_id", state.ThreadID).
				Str("node", NodePersonaModel).
				Str("model", modelName).
				Int("prompt_tokens", state.Usage.PromptTokens).
				Int("completion_tokens", state.Usage.CompletionTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")
		}

		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[ExtraThreadCreated] = state.ThreadCreated
		out.Extra[ExtraThreadID] = state.ThreadID

		if out.Role == schema.Assistant {
			if err := mm.SaveResponse(ctx, state.ThreadID, out.Content); err != nil {
				// the reply is still returned; only memory of it is lost
				logx.Error().
					Str("thread_id", state.ThreadID).
					Err(err).
					Msg("Error saving assistant response")
			}
		}
		return out, nil
	}
}
