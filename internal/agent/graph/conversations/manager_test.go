package conversations

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherlock-relay/server/internal/agent/model"
)

type memStore struct {
	threads map[string][]*schema.Message
	titles  map[string]string
}

func newMemStore() *memStore {
	return &memStore{threads: map[string][]*schema.Message{}, titles: map[string]string{}}
}

func (s *memStore) Append(_ context.Context, threadID string, turn *schema.Message) error {
	s.threads[threadID] = append(s.threads[threadID], turn)
	return nil
}

func (s *memStore) History(_ context.Context, threadID string, limit int) ([]*schema.Message, error) {
	msgs := s.threads[threadID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *memStore) EnsureThread(_ context.Context, threadID, _ string) (bool, error) {
	_, ok := s.threads[threadID]
	if !ok {
		s.threads[threadID] = nil
	}
	return !ok, nil
}

func (s *memStore) SetTitle(_ context.Context, threadID, title string) error {
	s.titles[threadID] = title
	return nil
}

func (s *memStore) Thread(_ context.Context, threadID string) (*model.Thread, error) {
	if _, ok := s.threads[threadID]; !ok {
		return nil, nil
	}
	return &model.Thread{ID: threadID, Title: s.titles[threadID]}, nil
}

func TestBuildContextKeepsLastMessages(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mm := NewMessagesManager(store, model.MemoryConfig{LastMessages: 3})

	for i := 0; i < 5; i++ {
		require.NoError(t, mm.SaveTurns(ctx, "telegram-42", []*schema.Message{schema.UserMessage(fmt.Sprintf("m%d", i))}))
	}

	msgs, err := mm.BuildContext(ctx, "telegram-42", "persona")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "persona", msgs[0].Content)
	assert.Equal(t, "m2", msgs[1].Content)
	assert.Equal(t, "m4", msgs[3].Content)
}

func TestDefaultLastMessages(t *testing.T) {
	mm := NewMessagesManager(newMemStore(), model.MemoryConfig{})
	assert.Equal(t, model.DefaultLastMessages, mm.lastMessages)
}

func TestSaveResponseSkipsBlank(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mm := NewMessagesManager(store, model.MemoryConfig{})

	require.NoError(t, mm.SaveResponse(ctx, "telegram-42", "   "))
	assert.Empty(t, store.threads["telegram-42"])

	require.NoError(t, mm.SaveResponse(ctx, "telegram-42", "Elementary."))
	require.Len(t, store.threads["telegram-42"], 1)
	assert.Equal(t, schema.Assistant, store.threads["telegram-42"][0].Role)
}

func TestFirstUserContent(t *testing.T) {
	assert.Equal(t, "", FirstUserContent(nil))
	assert.Equal(t, "Hello", FirstUserContent([]*schema.Message{
		schema.SystemMessage("x"),
		schema.UserMessage(" "),
		schema.UserMessage("Hello"),
	}))
}
