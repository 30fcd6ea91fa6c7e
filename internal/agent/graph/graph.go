package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sherlock-relay/server/internal/agent/graph/conversations"
	"github.com/sherlock-relay/server/internal/agent/graph/nodes"
	"github.com/sherlock-relay/server/internal/agent/graph/observers"
	"github.com/sherlock-relay/server/internal/agent/graph/prompts"
	"github.com/sherlock-relay/server/internal/agent/model"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

// Config holds everything needed to build the persona agent end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels and MessagesManager.
type Config struct {
	APIKey      string
	BaseURL     string
	AgentModel  model.AgentModelConfig
	Persona     model.PersonaConfig
	Memory      model.MemoryConfig
	ThreadStore model.ThreadStore
}

// GraphConfig holds all configuration needed to build the graph.
// It is built once per process and never mutated afterwards.
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	Persona         *model.PersonaConfig
	GenerateTitle   bool
}

// Agent runs the persona graph. Compiled runnables are cached per step budget,
// so an Agent is safe for concurrent use.
type Agent struct {
	config *GraphConfig

	mu        sync.Mutex
	runnables map[int]compose.Runnable[model.GenerateInput, *schema.Message]
}

// BuildAgent creates the Gemini chat models and the messages manager, then the Agent.
func BuildAgent(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.ThreadStore == nil {
		return nil, fmt.Errorf("thread store is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Agent:   &cfg.AgentModel,
	})
	if err != nil {
		return nil, err
	}

	persona := cfg.Persona
	return NewAgent(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: conversations.NewMessagesManager(cfg.ThreadStore, cfg.Memory),
		Persona:         &persona,
		GenerateTitle:   cfg.Memory.GenerateTitle,
	})
}

// NewAgent validates the config and compiles the graph for the default step budget.
func NewAgent(ctx context.Context, config *GraphConfig) (*Agent, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Persona == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.GenerateTitle && config.ChatModels.Title == nil {
		return nil, fmt.Errorf("title model is required when title generation is enabled")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.Persona == nil {
		return nil, fmt.Errorf("persona config is nil")
	}

	a := &Agent{
		config:    config,
		runnables: map[int]compose.Runnable[model.GenerateInput, *schema.Message]{},
	}
	if _, err := a.runnable(ctx, model.DefaultMaxSteps); err != nil {
		return nil, err
	}

	logx.Debug().Str("persona", config.Persona.Name).Msg("Persona agent built successfully")
	return a, nil
}

// Generate runs one agent turn against the given thread and returns the reply text.
// The text may be empty when the model produced nothing.
func (a *Agent) Generate(ctx context.Context, messages []*schema.Message, opts model.GenerateOptions) (*model.GenerateResult, error) {
	if strings.TrimSpace(opts.ThreadID) == "" {
		return nil, fmt.Errorf("thread id is required")
	}

	runnable, err := a.runnable(ctx, opts.MaxSteps)
	if err != nil {
		return nil, err
	}

	out, err := runnable.Invoke(ctx, model.GenerateInput{
		ResourceID: opts.ResourceID,
		ThreadID:   opts.ThreadID,
		Messages:   messages,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}

	result := &model.GenerateResult{ThreadID: opts.ThreadID}
	if out == nil {
		return result, nil
	}
	result.Text = out.Content
	if out.ResponseMeta != nil {
		result.Usage = out.ResponseMeta.Usage
	}
	if v, ok := out.Extra[nodes.ExtraTotalCostUSD].(float64); ok {
		result.TotalCostUSD = v
	}

	if created, _ := out.Extra[nodes.ExtraThreadCreated].(bool); created && a.config.GenerateTitle {
		a.generateTitle(ctx, opts.ThreadID, messages)
	}
	return result, nil
}

// generateTitle names a new thread after its first user turn. Failures only log.
func (a *Agent) generateTitle(ctx context.Context, threadID string, turns []*schema.Message) {
	first := conversations.FirstUserContent(turns)
	if first == "" {
		return
	}

	msgs, err := prompts.RenderTitleMessages(ctx, first)
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("title prompt failed")
		return
	}
	out, err := a.config.ChatModels.Title.Generate(ctx, msgs)
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("title generation failed")
		return
	}
	title := cleanTitle(out.Content)
	if title == "" {
		return
	}
	if err := a.config.MessagesManager.SetTitle(ctx, threadID, title); err != nil {
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("failed to store thread title")
		return
	}
	logx.Debug().Str("thread_id", threadID).Str("title", title).Msg("Thread titled")
}

func (a *Agent) runnable(ctx context.Context, maxSteps int) (compose.Runnable[model.GenerateInput, *schema.Message], error) {
	maxSteps = nodes.NormalizeMaxSteps(maxSteps)

	a.mu.Lock()
	defer a.mu.Unlock()

	if r, ok := a.runnables[maxSteps]; ok {
		return r, nil
	}
	r, err := BuildGraph(ctx, a.config, maxSteps)
	if err != nil {
		return nil, err
	}
	a.runnables[maxSteps] = r
	return r, nil
}

// BuildGraph constructs and compiles the persona graph:
// START -> InputConverter -> PersonaChatModel -> END.
func BuildGraph(ctx context.Context, config *GraphConfig, maxSteps int) (compose.Runnable[model.GenerateInput, *schema.Message], error) {
	g := compose.NewGraph[model.GenerateInput, *schema.Message](
		compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
			return &model.AppState{}
		}),
	)

	if err := g.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(config.MessagesManager, config.Persona),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	); err != nil {
		return nil, fmt.Errorf("add input converter: %w", err)
	}

	if err := g.AddChatModelNode(nodes.NodePersonaModel,
		config.ChatModels.Persona,
		compose.WithStatePostHandler(nodes.NewPersonaModelPostHandler(config.MessagesManager, config.ChatModels.ModelName)),
	); err != nil {
		return nil, fmt.Errorf("add persona model: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodePersonaModel},
		{nodes.NodePersonaModel, compose.END},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	runnable, err := g.Compile(ctx,
		compose.WithGraphName("persona_agent"),
		compose.WithMaxRunSteps(nodes.GraphRunSteps(maxSteps)),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}

// cleanTitle strips quotes and trailing punctuation and caps the length.
func cleanTitle(s string) string {
	s = strings.TrimSpace(strings.SplitN(strings.TrimSpace(s), "\n", 2)[0])
	s = strings.Trim(s, "\"'`*# ")
	s = strings.TrimRight(s, ".!?:;")
	const maxRunes = 80
	if r := []rune(s); len(r) > maxRunes {
		s = strings.TrimSpace(string(r[:maxRunes]))
	}
	return s
}
