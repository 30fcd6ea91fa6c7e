package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/sherlock-relay/server/internal/agent/model"
)

//go:embed template/persona_prompt.txt
var personaSystemPrompt string

// RenderPersonaSystem renders the persona system prompt and triggers prompt callbacks.
func RenderPersonaSystem(ctx context.Context, persona *model.PersonaConfig, threadTitle string) (string, error) {
	if persona == nil {
		return "", fmt.Errorf("persona config is nil")
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(personaSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"PersonaName": persona.Name,
		"ThreadTitle": threadTitle,
	})
	if err != nil {
		return "", fmt.Errorf("persona prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("persona prompt render: empty result")
	}
	return msgs[0].Content, nil
}
