package domain

import (
	"time"
)

// Conversation is an owned, persisted sequence of user/assistant messages.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the optimistic concurrency token. Zero means not yet stored.
	Version int64 `json:"-"`
}

// Message is a single entry in a conversation.
type Message struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSummary is the listing view of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TranscriptMessage is one role/content pair sent to the completion provider.
type TranscriptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewConversation returns an unsaved conversation owned by ownerID.
func NewConversation(ownerID string, now time.Time) *Conversation {
	now = now.UTC()
	return &Conversation{
		OwnerID:   ownerID,
		Title:     DefaultTitle(now),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultTitle derives a conversation title from its creation date.
func DefaultTitle(created time.Time) string {
	return "Chat " + created.UTC().Format("1/2/2006")
}

// IsNew reports whether the conversation has not been stored yet.
func (c *Conversation) IsNew() bool {
	return c.ID == ""
}

// Append adds a message and advances UpdatedAt. Timestamps never go
// backwards within a conversation, even if the clock does, and UpdatedAt
// moves forward on every append even when the clock has not.
func (c *Conversation) Append(sender Sender, content string, now time.Time) Message {
	ts := now.UTC()
	if n := len(c.Messages); n > 0 && ts.Before(c.Messages[n-1].Timestamp) {
		ts = c.Messages[n-1].Timestamp
	}
	msg := Message{Sender: sender, Content: content, Timestamp: ts}
	c.Messages = append(c.Messages, msg)
	if ts.After(c.UpdatedAt) {
		c.UpdatedAt = ts
	} else {
		c.UpdatedAt = c.UpdatedAt.Add(time.Nanosecond)
	}
	return msg
}

// Summary returns the listing view of c.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
