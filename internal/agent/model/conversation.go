package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ThreadStore is the conversation memory the agent reads and appends to.
// Threads are append-only; eviction is left to the backend.
type ThreadStore interface {
	// Append adds a turn to the end of the thread.
	Append(ctx context.Context, threadID string, turn *schema.Message) error

	// History returns the most recent turns in chronological order.
	// limit <= 0 returns the whole thread.
	History(ctx context.Context, threadID string, limit int) ([]*schema.Message, error)

	// EnsureThread records the owning resource on first use and reports whether
	// the thread was created by this call.
	EnsureThread(ctx context.Context, threadID, resourceID string) (bool, error)

	// SetTitle stores a human readable title for the thread.
	SetTitle(ctx context.Context, threadID, title string) error

	// Thread returns the thread metadata, or nil when the thread is unknown.
	Thread(ctx context.Context, threadID string) (*Thread, error)
}

// Thread is the metadata kept next to a conversation.
type Thread struct {
	ID         string
	ResourceID string
	Title      string
}
