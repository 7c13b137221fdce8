package llm

import (
	"github.com/rs/zerolog"

	"github.com/Aswinikumar555/ai-customer-support/internal/config"
)

// NewCompletionClient creates a completion client based on cfg.
// CHAT_MODE=MOCK returns a MockClient; otherwise a real Client.
func NewCompletionClient(cfg *config.Config, log zerolog.Logger) CompletionClient {
	if cfg.MockMode() {
		log.Warn().Msg("CHAT_MODE=MOCK detected, using mock completion client")
		return NewMockClient()
	}
	if cfg.LLMAPIKey == "" {
		log.Warn().Msg("LLM_API_KEY is empty; the provider will likely reject requests")
	}

	return NewClient(Options{
		BaseURL:   cfg.LLMBaseURL,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.LLMTimeout,
		Referer:   cfg.LLMReferer,
		Title:     cfg.LLMTitle,
	})
}
