// Package transcript converts stored conversation messages into the ordered
// role/content pairs a completion provider expects.
package transcript

import (
	"fmt"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

// Build maps every message to a transcript entry, preserving order.
// The whole history is sent; nothing is truncated or summarized.
func Build(messages []domain.Message) ([]domain.TranscriptMessage, error) {
	out := make([]domain.TranscriptMessage, 0, len(messages))
	for i, msg := range messages {
		role, err := roleFor(msg.Sender)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, domain.TranscriptMessage{Role: role, Content: msg.Content})
	}
	return out, nil
}

// BuildWithSystem is Build with an optional system prompt placed first.
func BuildWithSystem(systemPrompt string, messages []domain.Message) ([]domain.TranscriptMessage, error) {
	entries, err := Build(messages)
	if err != nil {
		return nil, err
	}
	if systemPrompt == "" {
		return entries, nil
	}
	return append([]domain.TranscriptMessage{{Role: domain.RoleSystem, Content: systemPrompt}}, entries...), nil
}

func roleFor(sender domain.Sender) (domain.Role, error) {
	switch sender {
	case domain.SenderUser:
		return domain.RoleUser, nil
	case domain.SenderAssistant:
		return domain.RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown sender %q", string(sender))
	}
}
