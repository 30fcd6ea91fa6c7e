package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlock-relay/server/internal/agent/model"
)

func TestRenderPersonaSystem(t *testing.T) {
	out, err := RenderPersonaSystem(context.Background(), &model.PersonaConfig{Name: "Sherlock Holmes"}, "")
	require.NoError(t, err)

	assert.Contains(t, out, "You are Sherlock Holmes")
	assert.Contains(t, out, "221B Baker Street")
	assert.NotContains(t, out, "The case at hand")
	assert.NotContains(t, out, "{{")
}

func TestRenderPersonaSystemWithTitle(t *testing.T) {
	out, err := RenderPersonaSystem(context.Background(), &model.PersonaConfig{Name: "Sherlock Holmes"}, "A missing violin")
	require.NoError(t, err)
	assert.Contains(t, out, `The case at hand so far: "A missing violin".`)
}

func TestRenderPersonaSystemNilConfig(t *testing.T) {
	_, err := RenderPersonaSystem(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestRenderTitleMessagesKeepsUserTextVerbatim(t *testing.T) {
	msgs, err := RenderTitleMessages(context.Background(), "what is {{.Secret}} in {braces}?")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "what is {{.Secret}} in {braces}?", msgs[1].Content)
}
