package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// It is registered via compose.WithGenLocalState and only touched inside
// state handlers or compose.ProcessState, which serialize access.
type AppState struct {
	ThreadID      string
	ResourceID    string
	ThreadCreated bool

	// Accumulated total LLM cost (USD) across model invocations for this request
	TotalCostUSD float64
	Usage        *schema.TokenUsage
}

// GenerateOptions scopes a generation to a conversation thread.
type GenerateOptions struct {
	ResourceID string
	ThreadID   string
	MaxSteps   int
}

// GenerateInput is the graph input: new turns plus their thread.
type GenerateInput struct {
	ResourceID string
	ThreadID   string
	Messages   []*schema.Message
}

// GenerateResult is what the agent hands back to its caller.
type GenerateResult struct {
	Text         string
	ThreadID     string
	Usage        *schema.TokenUsage
	TotalCostUSD float64
}
