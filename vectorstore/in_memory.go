package vectorstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/contextmesh/core"
)

// InMemoryStore is a process-local VectorStore scoring by lexical token
// overlap instead of embeddings. Suitable for tests, demos and environments
// without an embedding model; swap for the chromem store when semantic
// retrieval matters.
//
// Concurrency: protected by RWMutex. Search: linear scan over the
// collection; the score is |query tokens ∩ item tokens| / |query tokens|.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]core.VectorItem
}

var _ core.VectorStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: map[string]map[string]core.VectorItem{}}
}

// Upsert inserts or replaces items in the collection.
func (s *InMemoryStore) Upsert(_ context.Context, collection string, items []core.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = map[string]core.VectorItem{}
		s.collections[collection] = col
	}
	for _, it := range items {
		col[it.ID] = it
	}
	return nil
}

// Search scores every filtered item against query and returns the top hits
// at or above scoreThreshold, ordered by descending score.
func (s *InMemoryStore) Search(_ context.Context, collection, query string, filter map[string]string, scoreThreshold float32, limit int) ([]core.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}
	qTokens := tokenize(query)
	hits := make([]core.VectorHit, 0)
	for _, it := range s.collections[collection] {
		if !matchesFilter(it.Metadata, filter) {
			continue
		}
		score := overlapScore(qTokens, tokenize(it.Content))
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, core.VectorHit{VectorItem: it, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Query returns items matching the metadata filter with no distance
// involved. Results carry a zero score and are ordered by id for
// determinism.
func (s *InMemoryStore) Query(_ context.Context, collection string, filter map[string]string, limit int) ([]core.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]core.VectorHit, 0)
	for _, it := range s.collections[collection] {
		if !matchesFilter(it.Metadata, filter) {
			continue
		}
		hits = append(hits, core.VectorHit{VectorItem: it})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Delete removes items by id and/or metadata filter.
func (s *InMemoryStore) Delete(_ context.Context, collection string, ids []string, filter map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(col, id)
	}
	if len(filter) > 0 {
		for id, it := range col {
			if matchesFilter(it.Metadata, filter) {
				delete(col, id)
			}
		}
	}
	return nil
}

// Count returns the number of items in the collection.
func (s *InMemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func tokenize(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		tokens[strings.Trim(f, ".,;:!?\"'()[]")] = struct{}{}
	}
	delete(tokens, "")
	return tokens
}

func overlapScore(query, item map[string]struct{}) float32 {
	if len(query) == 0 {
		return 0
	}
	var hit int
	for tok := range query {
		if _, ok := item[tok]; ok {
			hit++
		}
	}
	return float32(hit) / float32(len(query))
}
