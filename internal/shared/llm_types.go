package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for an agent execution.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}

// SumUsage adds up the token usage of several executions.
func SumUsage(metas []AgentMeta) TokenUsage {
	var total TokenUsage
	for _, m := range metas {
		total.PromptTokens += m.Usage.PromptTokens
		total.CompletionTokens += m.Usage.CompletionTokens
		total.TotalTokens += m.Usage.TotalTokens
	}
	return total
}
