package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hupe1980/contextmesh/core"
)

// EmbeddingFunc computes the embedding for one text. It matches
// chromem.EmbeddingFunc so any chromem-provided embedder (OpenAI, Ollama,
// local models) can be passed through directly.
type EmbeddingFunc = chromem.EmbeddingFunc

// ChromemStore implements core.VectorStore on top of the embedded chromem-go
// database. Collections are created lazily on first use. A side index of
// item metadata is kept per collection because chromem has no pure metadata
// enumeration; semantic search always goes through chromem itself.
type ChromemStore struct {
	mu          sync.Mutex
	db          *chromem.DB
	embed       EmbeddingFunc
	collections map[string]*chromem.Collection
	items       map[string]map[string]core.VectorItem
}

var _ core.VectorStore = (*ChromemStore)(nil)

// NewChromemStore creates a store. persistPath may be empty for a purely
// in-memory database; otherwise the database is persisted as a gob file
// beneath that directory. The embedding function is required.
func NewChromemStore(persistPath string, embed EmbeddingFunc) (*ChromemStore, error) {
	if embed == nil {
		return nil, fmt.Errorf("chromem store: embedding function is required")
	}

	var (
		db  *chromem.DB
		err error
	)
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "chromem.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("chromem store: create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &ChromemStore{
		db:          db,
		embed:       embed,
		collections: map[string]*chromem.Collection{},
		items:       map[string]map[string]core.VectorItem{},
	}, nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(name, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("chromem store: collection %s: %w", name, err)
	}
	s.collections[name] = col
	if _, ok := s.items[name]; !ok {
		s.items[name] = map[string]core.VectorItem{}
	}
	return col, nil
}

// Upsert inserts or replaces items in the collection.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, items []core.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	for _, it := range items {
		err := col.AddDocument(ctx, chromem.Document{
			ID:        it.ID,
			Content:   it.Content,
			Embedding: it.Embedding,
			Metadata:  it.Metadata,
		})
		if err != nil {
			return fmt.Errorf("chromem store: add %s: %w", it.ID, err)
		}
		s.items[collection][it.ID] = it
	}
	return nil
}

// Search performs semantic retrieval for query restricted by the metadata
// filter, dropping hits below scoreThreshold.
func (s *ChromemStore) Search(ctx context.Context, collection, query string, filter map[string]string, scoreThreshold float32, limit int) ([]core.VectorHit, error) {
	s.mu.Lock()
	col, err := s.collection(collection)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if limit <= 0 {
		limit = 5
	}
	if limit > count {
		limit = count
	}
	if limit == 0 {
		return []core.VectorHit{}, nil
	}

	results, err := col.Query(ctx, query, limit, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem store: query %s: %w", collection, err)
	}

	hits := make([]core.VectorHit, 0, len(results))
	for _, r := range results {
		if r.Similarity < scoreThreshold {
			continue
		}
		hits = append(hits, core.VectorHit{
			VectorItem: core.VectorItem{ID: r.ID, Embedding: r.Embedding, Content: r.Content, Metadata: r.Metadata},
			Score:      r.Similarity,
		})
	}
	return hits, nil
}

// Query enumerates items matching the metadata filter through the side
// index; no embedding distance is involved.
func (s *ChromemStore) Query(_ context.Context, collection string, filter map[string]string, limit int) ([]core.VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := make([]core.VectorHit, 0)
	for _, it := range s.items[collection] {
		if !matchesFilter(it.Metadata, filter) {
			continue
		}
		hits = append(hits, core.VectorHit{VectorItem: it})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Delete removes items by id and/or metadata filter.
func (s *ChromemStore) Delete(ctx context.Context, collection string, ids []string, filter map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.collection(collection)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		if err := col.Delete(ctx, nil, nil, ids...); err != nil {
			return fmt.Errorf("chromem store: delete ids: %w", err)
		}
		for _, id := range ids {
			delete(s.items[collection], id)
		}
	}
	if len(filter) > 0 {
		if err := col.Delete(ctx, filter, nil); err != nil {
			return fmt.Errorf("chromem store: delete by filter: %w", err)
		}
		for id, it := range s.items[collection] {
			if matchesFilter(it.Metadata, filter) {
				delete(s.items[collection], id)
			}
		}
	}
	return nil
}
