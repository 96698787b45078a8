package search

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cartwright0/cartwright/internal/catalog"
)

// PgIndex is a product index backed by PostgreSQL with the pgvector
// extension. Embeddings survive restarts, so the catalog only needs
// re-embedding when it changes (the `cartwright index` command).
type PgIndex struct {
	embedder  ai.Embedder
	pool      *pgxpool.Pool
	dimension int
	built     atomic.Bool
}

// NewPgIndex creates a pgvector-backed index. Availability is probed from
// the product_embeddings table, which migrations create before this runs,
// so a probe failure means the database is broken rather than empty.
func NewPgIndex(ctx context.Context, embedder ai.Embedder, pool *pgxpool.Pool, dimension int) (*PgIndex, error) {
	ix := &PgIndex{embedder: embedder, pool: pool, dimension: dimension}

	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM product_embeddings`).Scan(&count); err != nil {
		return nil, fmt.Errorf("probing product embeddings: %w", err)
	}
	if count > 0 {
		ix.built.Store(true)
	}
	return ix, nil
}

// Available reports whether the table holds at least one embedding.
func (ix *PgIndex) Available() bool {
	return ix.built.Load()
}

// Build embeds the products and replaces the table contents in one
// transaction, so a concurrent Search sees either the old rows or the new
// ones. An empty product list is a no-op.
func (ix *PgIndex) Build(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}

	docs := make([]*ai.Document, len(products))
	for i, p := range products {
		docs[i] = ai.DocumentFromText(CompositeText(p), nil)
	}

	resp, err := ix.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return fmt.Errorf("embedding %d products: %w", len(products), err)
	}
	if len(resp.Embeddings) != len(products) {
		return fmt.Errorf("embedder returned %d vectors for %d products", len(resp.Embeddings), len(products))
	}

	tx, err := ix.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM product_embeddings`); err != nil {
		return fmt.Errorf("clearing product embeddings: %w", err)
	}

	batch := &pgx.Batch{}
	for i, p := range products {
		emb := resp.Embeddings[i].Embedding
		if len(emb) != ix.dimension {
			return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(emb), ix.dimension)
		}
		batch.Queue(`
			INSERT INTO product_embeddings (product_id, title, price, category, description, rating_rate, rating_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Title, p.Price, p.Category, p.Description,
			p.Rating.Rate, p.Rating.Count, pgvector.NewVector(emb))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting product embeddings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing product embeddings: %w", err)
	}

	ix.built.Store(true)
	return nil
}

// Search embeds the query and ranks with the pgvector L2 operator.
// An unavailable index returns an empty result and no error.
func (ix *PgIndex) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if !ix.built.Load() || topK <= 0 {
		return nil, nil
	}

	resp, err := ix.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	qv := pgvector.NewVector(resp.Embeddings[0].Embedding)

	rows, err := ix.pool.Query(ctx, `
		SELECT product_id, title, price, category, description, rating_rate, rating_count,
		       embedding <-> $1 AS distance
		FROM product_embeddings
		ORDER BY distance
		LIMIT $2`, qv, topK)
	if err != nil {
		return nil, fmt.Errorf("querying product embeddings: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Product.ID, &r.Product.Title, &r.Product.Price,
			&r.Product.Category, &r.Product.Description,
			&r.Product.Rating.Rate, &r.Product.Rating.Count, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}
	return results, nil
}
