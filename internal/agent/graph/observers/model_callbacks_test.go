package observers

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("persona"),
		schema.UserMessage(" first "),
		schema.AssistantMessage("reply", nil),
		nil,
		schema.UserMessage(" second "),
	}
	assert.Equal(t, "second", lastUserContent(msgs))
	assert.Equal(t, "", lastUserContent([]*schema.Message{schema.SystemMessage("x")}))
}

func TestNewAllCallbacksIsNotNil(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks())
}
