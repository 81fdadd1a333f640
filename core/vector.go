package core

import "context"

// VectorItem is one indexable unit (typically a chunk) with optional
// precomputed embedding and free-form metadata used for filtering.
type VectorItem struct {
	ID        string
	Embedding []float32
	Content   string
	Metadata  map[string]string
}

// VectorHit is a retrieved item with a similarity score (higher is better).
type VectorHit struct {
	VectorItem
	Score float32
}

// VectorStore defines the semantic search backend contract. Implementations
// can back search with embeddings, keywords or any heuristic. Collections
// scope unrelated indexes from each other.
type VectorStore interface {
	// Upsert inserts or replaces items in the collection.
	Upsert(ctx context.Context, collection string, items []VectorItem) error
	// Search performs ranked retrieval for query, restricted by the metadata
	// filter, dropping hits below scoreThreshold and returning at most limit.
	Search(ctx context.Context, collection, query string, filter map[string]string, scoreThreshold float32, limit int) ([]VectorHit, error)
	// Query returns unordered matches for the metadata filter with no
	// embedding distance involved.
	Query(ctx context.Context, collection string, filter map[string]string, limit int) ([]VectorHit, error)
	// Delete removes items by id and/or metadata filter.
	Delete(ctx context.Context, collection string, ids []string, filter map[string]string) error
}
