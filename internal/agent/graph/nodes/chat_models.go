package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/sherlock-relay/server/internal/agent/model"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Agent   *model.AgentModelConfig
}

// ChatModels holds the persona model and the model used to name threads.
type ChatModels struct {
	Persona   einomodel.BaseChatModel
	Title     einomodel.BaseChatModel
	ModelName string
}

// NewChatModels creates the Gemini chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Agent == nil {
		return nil, fmt.Errorf("agent model config is nil")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	persona, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Agent.Model,
		Temperature: &config.Agent.Temperature,
		MaxTokens:   &config.Agent.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating persona model")
		return nil, fmt.Errorf("error creating persona model: %w", err)
	}

	titleTemperature := float32(0.2)
	titleMaxTokens := 32
	title, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Agent.Model,
		Temperature: &titleTemperature,
		MaxTokens:   &titleMaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating title model")
		return nil, fmt.Errorf("error creating title model: %w", err)
	}

	return &ChatModels{
		Persona:   persona,
		Title:     title,
		ModelName: config.Agent.Model,
	}, nil
}
