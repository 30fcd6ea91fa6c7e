package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/title_prompt.txt
var titleSystemPrompt string

// RenderTitleMessages builds the messages that ask the model to name a thread
// after its first user turn.
func RenderTitleMessages(ctx context.Context, firstMessage string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(titleSystemPrompt),
		schema.UserMessage("{{.Message}}"),
	)
	msgs, err := tpl.Format(ctx, map[string]any{"Message": firstMessage})
	if err != nil {
		return nil, fmt.Errorf("title prompt render: %w", err)
	}
	return msgs, nil
}
