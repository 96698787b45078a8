package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists carts in the cart_items table.
// The UNIQUE (user_id, product_id) constraint and the ON CONFLICT upsert let
// the database serialize concurrent increments for the same line.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a cart store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Lines implements Store.
func (s *PostgresStore) Lines(ctx context.Context, userID string) ([]Line, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, title, price, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY added_at, product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying cart for %q: %w", userID, err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Title, &l.Price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scanning cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading cart rows: %w", err)
	}
	return lines, nil
}

// Upsert implements Store.
func (s *PostgresStore) Upsert(ctx context.Context, userID string, line Line) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, title, price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, line.ProductID, line.Title, line.Price, line.Quantity)
	if err != nil {
		return fmt.Errorf("upserting cart line (%q, %d): %w", userID, line.ProductID, err)
	}
	return nil
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, userID string, productID int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("removing cart line (%q, %d): %w", userID, productID, err)
	}
	return tag.RowsAffected() > 0, nil
}
