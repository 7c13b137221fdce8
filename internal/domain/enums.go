// Package domain defines the core domain models for the chat service.
package domain

import "fmt"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"

	// senderLegacyAI is how assistant messages were persisted by earlier releases.
	senderLegacyAI = "ai"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// MarshalText implements encoding.TextMarshaler.
func (s Sender) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sender %q", string(s))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sender) UnmarshalText(text []byte) error {
	switch string(text) {
	case string(SenderUser):
		*s = SenderUser
	case string(SenderAssistant), senderLegacyAI:
		*s = SenderAssistant
	default:
		return fmt.Errorf("invalid sender %q", string(text))
	}
	return nil
}

// Role is the provider-facing role of a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ProviderErrorKind classifies completion provider failures.
type ProviderErrorKind string

const (
	ProviderRejected          ProviderErrorKind = "provider_rejected"
	ProviderUnreachable       ProviderErrorKind = "provider_unreachable"
	RequestConstructionFailed ProviderErrorKind = "request_construction_failed"
)

// ExchangeOutcome labels the result of a SendMessage call for metrics and logs.
type ExchangeOutcome string

const (
	OutcomeSucceeded     ExchangeOutcome = "succeeded"
	OutcomeInvalid       ExchangeOutcome = "invalid"
	OutcomeNotFound      ExchangeOutcome = "not_found"
	OutcomeProviderError ExchangeOutcome = "provider_error"
	OutcomeConflict      ExchangeOutcome = "conflict"
	OutcomeStorageError  ExchangeOutcome = "storage_error"
	OutcomeUnavailable   ExchangeOutcome = "unavailable"
)
