package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/sherlock-relay/server/internal/agent/model"
)

// MessagesManager sits between the graph nodes and the thread store.
type MessagesManager struct {
	store        model.ThreadStore
	lastMessages int
}

func NewMessagesManager(store model.ThreadStore, config model.MemoryConfig) *MessagesManager {
	lastMessages := config.LastMessages
	if lastMessages <= 0 {
		lastMessages = model.DefaultLastMessages
	}
	return &MessagesManager{
		store:        store,
		lastMessages: lastMessages,
	}
}

// EnsureThread registers the thread under its resource. Returns true on first use.
func (cm *MessagesManager) EnsureThread(ctx context.Context, threadID, resourceID string) (bool, error) {
	return cm.store.EnsureThread(ctx, threadID, resourceID)
}

// ThreadTitle returns the stored title, or "" when none was generated yet.
func (cm *MessagesManager) ThreadTitle(ctx context.Context, threadID string) (string, error) {
	th, err := cm.store.Thread(ctx, threadID)
	if err != nil || th == nil {
		return "", err
	}
	return th.Title, nil
}

// SaveTurns appends the incoming turns in order.
func (cm *MessagesManager) SaveTurns(ctx context.Context, threadID string, turns []*schema.Message) error {
	for _, turn := range turns {
		if turn == nil {
			continue
		}
		if err := cm.store.Append(ctx, threadID, turn); err != nil {
			return err
		}
	}
	return nil
}

// BuildContext returns the system prompt followed by the recent thread history.
func (cm *MessagesManager) BuildContext(ctx context.Context, threadID string, systemPrompt string) ([]*schema.Message, error) {
	history, err := cm.store.History(ctx, threadID, cm.lastMessages)
	if err != nil {
		return nil, err
	}

	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, m := range history {
		// system turns are never replayed; the persona prompt is always fresh
		if m == nil || m.Role == schema.System {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// SaveResponse persists a non-empty assistant reply.
func (cm *MessagesManager) SaveResponse(ctx context.Context, threadID string, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return cm.store.Append(ctx, threadID, schema.AssistantMessage(content, nil))
}

// SetTitle stores the generated thread title.
func (cm *MessagesManager) SetTitle(ctx context.Context, threadID, title string) error {
	return cm.store.SetTitle(ctx, threadID, title)
}

// FirstUserContent returns the content of the first user turn, or "".
func FirstUserContent(turns []*schema.Message) string {
	for _, m := range turns {
		if m != nil && m.Role == schema.User && strings.TrimSpace(m.Content) != "" {
			return m.Content
		}
	}
	return ""
}
