// Package session persists conversations and their messages.
//
// A conversation belongs to one user and holds an ordered message log.
// Messages store Genkit ai.Part slices so tool requests and responses
// round-trip losslessly. The store is appended to after an agent run
// completes; it is never consulted mid-run.
package session

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// DefaultTitle matches the conversations.title schema default.
const DefaultTitle = "New conversation"

// Conversation is one user-visible chat thread.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single persisted conversation message.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	Seq            int64      `json:"seq"`
	Role           string     `json:"role"`
	Parts          []*ai.Part `json:"parts"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Store persists conversations and messages.
// PostgresStore backs production; MemoryStore backs tests and DB-less runs.
type Store interface {
	// Create starts a new conversation for userID.
	// An empty title gets DefaultTitle.
	Create(ctx context.Context, userID, title string) (*Conversation, error)

	// Get returns one conversation, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// List returns the user's conversations, most recently updated first.
	List(ctx context.Context, userID string, limit, offset int) ([]*Conversation, error)

	// Delete removes a conversation and all its messages, or ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// Append adds messages to the conversation log in order, assigning
	// consecutive sequence numbers, and bumps updated_at. Returns
	// ErrNotFound for an unknown conversation.
	Append(ctx context.Context, id uuid.UUID, messages []*ai.Message) error

	// Messages returns the full persisted log in sequence order.
	Messages(ctx context.Context, id uuid.UUID) ([]*Message, error)

	// History returns the log converted for feeding back into generation.
	History(ctx context.Context, id uuid.UUID) ([]*ai.Message, error)
}

// TitleFromInput derives a conversation title from the first user message.
func TitleFromInput(input string) string {
	const maxTitleLen = 60
	runes := []rune(input)
	if len(runes) <= maxTitleLen {
		return input
	}
	return string(runes[:maxTitleLen-1]) + "…"
}
