package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartwright0/cartwright/internal/log"
)

// PostgresStore persists conversations in PostgreSQL via pgx.
// Safe for concurrent use; sequence assignment is serialized per
// conversation with a row lock.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgresStore creates a conversation store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger log.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Create(ctx context.Context, userID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	if userID == "" {
		userID = "default"
	}

	c := &Conversation{UserID: userID, Title: title}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		userID, title,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", c.ID, "user_id", userID)
	return c, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	c := &Conversation{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, userID string, limit, offset int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM conversations
		 WHERE user_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c := &Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, id uuid.UUID, messages []*ai.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		// No-op when already committed.
		_ = tx.Rollback(ctx)
	}()

	// Lock the conversation row so concurrent appends cannot race on the
	// next sequence number.
	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locking conversation %s: %w", id, err)
	}

	var maxSeq int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE conversation_id = $1`, id,
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("reading max sequence: %w", err)
	}

	batch := &pgx.Batch{}
	for i, msg := range messages {
		parts, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshaling message %d parts: %w", i, err)
		}
		batch.Queue(
			`INSERT INTO messages (conversation_id, seq, role, parts)
			 VALUES ($1, $2, $3, $4)`,
			id, maxSeq+int64(i)+1, string(msg.Role), parts,
		)
	}
	batch.Queue(`UPDATE conversations SET updated_at = now() WHERE id = $1`, id)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting messages: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}

	s.logger.Debug("appended messages", "conversation_id", id, "count", len(messages))
	return nil
}

func (s *PostgresStore) Messages(ctx context.Context, id uuid.UUID) ([]*Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, seq, role, parts, created_at
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting messages for %s: %w", id, err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m := &Message{}
		var parts []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &m.Role, &parts, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal(parts, &m.Parts); err != nil {
			s.logger.Warn("skipping message with malformed parts",
				"message_id", m.ID, "error", err)
			continue
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting messages for %s: %w", id, err)
	}
	return out, nil
}

func (s *PostgresStore) History(ctx context.Context, id uuid.UUID) ([]*ai.Message, error) {
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
