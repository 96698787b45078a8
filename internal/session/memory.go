package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and DB-less runs.
// Safe for concurrent use.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*Conversation
	messages      map[uuid.UUID][]*Message
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uuid.UUID]*Conversation),
		messages:      make(map[uuid.UUID][]*Message),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	if userID == "" {
		userID = "default"
	}

	now := time.Now()
	c := &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = c

	cp := *c
	return &cp, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, userID string, limit, offset int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Conversation
	for _, c := range s.conversations {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) Append(_ context.Context, id uuid.UUID, messages []*ai.Message) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}

	seq := int64(len(s.messages[id]))
	now := time.Now()
	for i, msg := range messages {
		parts := make([]*ai.Part, len(msg.Content))
		copy(parts, msg.Content)
		s.messages[id] = append(s.messages[id], &Message{
			ID:             uuid.New(),
			ConversationID: id,
			Seq:            seq + int64(i) + 1,
			Role:           string(msg.Role),
			Parts:          parts,
			CreatedAt:      now,
		})
	}
	c.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Messages(_ context.Context, id uuid.UUID) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return nil, ErrNotFound
	}

	msgs := s.messages[id]
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, id uuid.UUID) ([]*ai.Message, error) {
	msgs, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	history := make([]*ai.Message, len(msgs))
	for i, m := range msgs {
		history[i] = &ai.Message{Role: ai.Role(m.Role), Content: m.Parts}
	}
	return history, nil
}
