package nodes

import (
	"github.com/cloudwego/eino/schema"

	"github.com/sherlock-relay/server/internal/agent/model"
)

const (
	NodeInputConverter = "InputConverter"
	NodePersonaModel   = "PersonaChatModel"
)

// Extra keys set on the final message so callers can read per-run facts
// that otherwise live only in graph state.
const (
	ExtraUsageCost     = "usage_cost"
	ExtraTotalCostUSD  = "usage_cost_total_usd"
	ExtraThreadCreated = "thread_created"
	ExtraThreadID      = "thread_id"
)

// fixedGraphRunSteps covers the input converter and END.
const fixedGraphRunSteps = 2

// NormalizeMaxSteps returns the default budget when n is not positive.
func NormalizeMaxSteps(n int) int {
	if n <= 0 {
		return model.DefaultMaxSteps
	}
	return n
}

// GraphRunSteps converts a model step budget into an Eino run step limit.
func GraphRunSteps(maxSteps int) int {
	return NormalizeMaxSteps(maxSteps) + fixedGraphRunSteps
}

// recordUsage accumulates cost into state and mirrors it onto out.Extra.
func recordUsage(out *schema.Message, state *model.AppState, modelName string) (inC, outC, totalC float64) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return 0, 0, 0
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC = model.ComputeCost(usage, model.ResolvePricing(modelName))

	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra[ExtraUsageCost] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}

	state.TotalCostUSD += totalC
	state.Usage = usage
	out.Extra[ExtraTotalCostUSD] = state.TotalCostUSD
	return inC, outC, totalC
}
