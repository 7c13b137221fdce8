// Package repository persists conversations.
package repository

import (
	"context"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

// ConversationStore is the persistence contract used by the chat service.
//
// Lookups are always scoped by owner: a conversation owned by someone else is
// indistinguishable from one that does not exist.
type ConversationStore interface {
	// Create stores a new conversation, assigns its ID and sets Version to 1.
	Create(ctx context.Context, c *domain.Conversation) (string, error)
	// FindByIDAndOwner returns (nil, nil) when no such conversation exists for ownerID.
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Conversation, error)
	// ListByOwner returns summaries ordered by UpdatedAt descending.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ConversationSummary, error)
	// Save replaces an existing conversation. It returns domain.ErrNotFound when
	// the row is gone and domain.ErrConflict when Version is stale.
	Save(ctx context.Context, c *domain.Conversation) error

	Ping(ctx context.Context) error
	Close() error
}

// Ensure SQLStore implements ConversationStore interface.
var _ ConversationStore = (*SQLStore)(nil)
