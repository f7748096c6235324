// Package llm provides the optional research assistant: natural-language
// interpretation of schema models and analysis results through an
// OpenAI-compatible or Anthropic completion endpoint.
package llm

import (
	"context"
)

// CompletionRequest is one prompt sent to a provider.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionResult carries a provider response with usage counters where the
// backend reports them.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Provider is a completion backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	Name() string
}
