// Package llm provides the completion gateway in front of an
// OpenAI-compatible chat completion provider.
package llm

import (
	"context"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

// CompletionClient defines the completion gateway contract.
type CompletionClient interface {
	// Complete sends the transcript and returns the assistant reply.
	// Failures are returned as *domain.ProviderError.
	Complete(ctx context.Context, transcript []domain.TranscriptMessage) (*Completion, error)
}

// Completion is a successful provider reply.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Ensure Client implements CompletionClient interface.
var _ CompletionClient = (*Client)(nil)
