// Package search provides semantic product retrieval over the store catalog.
//
// An index embeds every product into a vector space and answers queries by
// nearest-neighbor search on L2 distance. Two implementations exist: Index
// keeps the vectors in memory and is rebuilt at startup; PgIndex persists
// them in PostgreSQL with pgvector (see pg.go).
package search

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/firebase/genkit/go/ai"

	"github.com/cartwright0/cartwright/internal/catalog"
)

// Result is one search hit with its raw L2 distance. Smaller is closer.
type Result struct {
	Product  catalog.Product
	Distance float64
}

// CompositeText returns the text embedded for a product. Title, description,
// and category all contribute so queries can match on any of them.
func CompositeText(p catalog.Product) string {
	return fmt.Sprintf("%s. %s. Category: %s", p.Title, p.Description, p.Category)
}

// snapshot is one immutable build of the index. Search operates on whichever
// snapshot was current when it loaded the pointer, so a concurrent Build
// never exposes a half-written state.
type snapshot struct {
	products []catalog.Product
	vectors  [][]float32
}

// Index is an in-memory vector index over catalog products.
type Index struct {
	embedder  ai.Embedder
	dimension int
	current   atomic.Pointer[snapshot]
}

// NewIndex creates an index using the given embedder. The dimension is fixed
// for the lifetime of the index and validated against every build.
func NewIndex(embedder ai.Embedder, dimension int) *Index {
	return &Index{embedder: embedder, dimension: dimension}
}

// Available reports whether a build has completed and the index can rank.
func (ix *Index) Available() bool {
	return ix.current.Load() != nil
}

// Build embeds the products and atomically swaps in the new snapshot.
// An empty product list is a no-op and leaves the index unavailable.
func (ix *Index) Build(ctx context.Context, products []catalog.Product) error {
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

	snap := &snapshot{
		products: make([]catalog.Product, len(products)),
		vectors:  make([][]float32, len(products)),
	}
	copy(snap.products, products)
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != ix.dimension {
			return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(emb.Embedding), ix.dimension)
		}
		snap.vectors[i] = emb.Embedding
	}

	ix.current.Store(snap)
	return nil
}

// Search embeds the query and returns the topK nearest products by L2
// distance, closest first. An unavailable index returns an empty result and
// no error; callers use Available to pick a fallback strategy.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	snap := ix.current.Load()
	if snap == nil || topK <= 0 {
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
	qv := resp.Embeddings[0].Embedding
	if len(qv) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(qv), ix.dimension)
	}

	results := make([]Result, len(snap.products))
	for i := range snap.products {
		results[i] = Result{
			Product:  snap.products[i],
			Distance: l2Distance(qv, snap.vectors[i]),
		}
	}

	sortByDistance(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// l2Distance returns the Euclidean distance between two vectors, matching
// what the pgvector <-> operator reports so the two backends rank alike.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// sortByDistance orders results ascending by distance, keeping the original
// order for ties (catalog order is the tiebreak users see).
func sortByDistance(results []Result) {
	// Insertion sort: result sets are catalog-sized (tens of products) and
	// stability matters.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Distance < results[j-1].Distance; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
