package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

// MockClient is a CompletionClient that answers without a provider.
type MockClient struct {
	model string
}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{model: "mock-gpt-3.5-turbo"}
}

// Ensure MockClient implements CompletionClient interface.
var _ CompletionClient = (*MockClient)(nil)

// Complete echoes the latest user message.
func (m *MockClient) Complete(ctx context.Context, transcript []domain.TranscriptMessage) (*Completion, error) {
	if len(transcript) == 0 {
		return nil, &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: errors.New("transcript is empty")}
	}

	content := m.generateMockResponse(transcript)
	prompt := m.estimateTokens(transcript)
	completion := len(content) / 4

	return &Completion{
		Content: content,
		Model:   m.model,
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// generateMockResponse generates a mock response based on the transcript.
func (m *MockClient) generateMockResponse(transcript []domain.TranscriptMessage) string {
	var lastUserMessage string
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == domain.RoleUser {
			lastUserMessage = transcript[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the completion client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// estimateTokens provides a rough token count estimate.
func (m *MockClient) estimateTokens(transcript []domain.TranscriptMessage) int {
	total := 0
	for _, msg := range transcript {
		total += len(msg.Content) / 4
	}
	return total
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
