package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestComputeCost(t *testing.T) {
	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}

	in, out, total := ComputeCost(usage, ResolvePricing("gemini-2.0-flash"))
	assert.InDelta(t, 0.10, in, 1e-9)
	assert.InDelta(t, 0.20, out, 1e-9)
	assert.InDelta(t, 0.30, total, 1e-9)
}

func TestComputeCostUnknownModelAndNilUsage(t *testing.T) {
	_, _, total := ComputeCost(&schema.TokenUsage{PromptTokens: 10}, ResolvePricing("unknown"))
	assert.Zero(t, total)

	_, _, total = ComputeCost(nil, ResolvePricing("gemini-2.0-flash"))
	assert.Zero(t, total)
}
