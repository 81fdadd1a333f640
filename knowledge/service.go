package knowledge

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

// DefaultCollection is the vector store collection knowledge chunks are
// indexed into.
const DefaultCollection = "knowledge"

// defaultCacheSize bounds the read-through artifact byte cache.
const defaultCacheSize = 256

// metadata tag keys attached to indexed chunks.
const (
	tagArtifactID = "artifact_id"
	tagBizID      = "biz_id"
	tagChunkIndex = "chunk_index"
	tagWorkspace  = "workspace"
)

// Service implements knowledge offload and retrieval on top of an artifact
// repository and a vector store. It keeps an in-memory catalog of offloaded
// artifacts and their chunks; the catalog is the source of truth, the
// repository and vector index are best-effort durable projections whose
// failures are logged and swallowed.
//
// The catalog and cache may be touched by multiple contexts concurrently and
// are guarded; individual WorkingStates passed into methods stay under their
// owner's exclusive control.
type Service struct {
	repo       core.ArtifactRepository
	vectors    core.VectorStore
	chunker    *Chunker
	collection string
	previews   int
	logger     logging.Logger

	mu      sync.RWMutex
	catalog map[string]map[string]*catalogEntry // workspace -> artifact id -> entry
	cache   *lru.Cache[string, []byte]
}

type catalogEntry struct {
	artifact *core.Artifact
	chunks   []core.Chunk
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithChunker overrides the default chunker.
func WithChunker(c *Chunker) ServiceOption { return func(s *Service) { s.chunker = c } }

// WithCollection overrides the vector store collection name.
func WithCollection(name string) ServiceOption { return func(s *Service) { s.collection = name } }

// WithPreviewChunks overrides the head/tail preview bound.
func WithPreviewChunks(n int) ServiceOption { return func(s *Service) { s.previews = n } }

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) ServiceOption { return func(s *Service) { s.logger = l } }

// NewService wires a knowledge service. Both backends are required; use the
// in-memory implementations for tests.
func NewService(repo core.ArtifactRepository, vectors core.VectorStore, opts ...ServiceOption) *Service {
	cache, _ := lru.New[string, []byte](defaultCacheSize)
	s := &Service{
		repo:       repo,
		vectors:    vectors,
		chunker:    NewChunker(),
		collection: DefaultCollection,
		previews:   core.DefaultPreviewChunks,
		logger:     logging.NoOpLogger{},
		catalog:    map[string]map[string]*catalogEntry{},
		cache:      cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.ForComponent(s.logger, "knowledge")
	return s
}

// Offload tags every artifact in the batch with a shared biz id (generated
// if absent), registers them in the given WorkingState, persists and indexes
// them, and returns the context string to hand back to the agent: the raw
// content for a single artifact under the inline limit, otherwise a bounded
// index pointing at retrievable detail.
func (s *Service) Offload(ctx context.Context, state *core.WorkingState, workspace string, artifacts []*core.Artifact, bizID string) (string, error) {
	if len(artifacts) == 0 {
		return "", fmt.Errorf("offload: empty artifact batch")
	}
	if bizID == "" {
		bizID = core.NewID()
	}

	start := time.Now()
	var (
		totalBytes int
		persistErr error
	)
	for _, a := range artifacts {
		a.Tag(tagBizID, bizID)
		if state != nil {
			state.RegisterArtifact(a)
		}
		totalBytes += len(a.Content)
		if err := s.persist(ctx, workspace, a); err != nil && persistErr == nil {
			persistErr = err
		}
	}
	if dl, ok := s.logger.(logging.DomainLogger); ok {
		dl.LogOffload(bizID, len(artifacts), totalBytes, time.Since(start), persistErr)
	}

	// Fast path: a single small artifact is returned raw, avoiding needless
	// indirection through the index.
	if len(artifacts) == 1 && len(artifacts[0].Content) < core.DefaultInlineLimit {
		return artifacts[0].Content, nil
	}

	doc := &contextDocument{
		Stats: fmt.Sprintf("offloaded %d artifacts (biz_id=%s)", len(artifacts), bizID),
	}
	for _, a := range artifacts {
		doc.Index = append(doc.Index, s.indexEntryFor(workspace, a))
	}
	return doc.render(), nil
}

// AddArtifact registers and persists a single artifact outside a batch.
func (s *Service) AddArtifact(ctx context.Context, state *core.WorkingState, workspace string, a *core.Artifact) {
	if state != nil {
		state.RegisterArtifact(a)
	}
	s.persist(ctx, workspace, a)
}

// UpdateArtifact replaces an artifact's content, re-chunks and re-indexes
// it. The previous chunk index entries are removed first so chunk count and
// indices stay consistent with the stored chunks.
func (s *Service) UpdateArtifact(ctx context.Context, state *core.WorkingState, workspace string, a *core.Artifact) {
	if err := s.vectors.Delete(ctx, s.collection, nil, map[string]string{tagArtifactID: a.ID}); err != nil {
		s.logger.Warn("knowledge.update.deindex_failed", "artifact_id", a.ID, "error", err)
	}
	a.Chunked = false
	a.ChunkCount = 0
	s.AddArtifact(ctx, state, workspace, a)
}

// DeleteArtifact removes an artifact from the working state, the catalog and
// the vector index. Durably stored bytes are left behind; the repository
// contract has no delete and orphaned objects are harmless.
func (s *Service) DeleteArtifact(ctx context.Context, state *core.WorkingState, workspace, artifactID string) {
	if state != nil {
		state.UnregisterArtifact(artifactID)
	}
	s.mu.Lock()
	if ws, ok := s.catalog[workspace]; ok {
		delete(ws, artifactID)
	}
	s.mu.Unlock()
	s.cache.Remove(artifactKey(workspace, artifactID))
	if err := s.vectors.Delete(ctx, s.collection, nil, map[string]string{tagArtifactID: artifactID}); err != nil {
		s.logger.Warn("knowledge.delete.deindex_failed", "artifact_id", artifactID, "error", err)
	}
}

// ReadArtifact returns the durably stored content bytes for an artifact via
// an LRU read-through cache.
func (s *Service) ReadArtifact(ctx context.Context, workspace, artifactID string) ([]byte, error) {
	key := artifactKey(workspace, artifactID)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	data, err := s.repo.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", artifactID, err)
	}
	s.cache.Add(key, data)
	return data, nil
}

// LoadOptions selects the retrieval strategy and its bounds.
type LoadOptions struct {
	// Workspace scopes the catalog and storage keys.
	Workspace string
	// Filter restricts retrieval by metadata tags (e.g. biz_id).
	Filter map[string]string
	// Query is the semantic query text; used only with SearchByIndex.
	Query string
	// TopK bounds the number of chunk hits.
	TopK int
	// LoadContent includes full chunk contents in the output.
	LoadContent bool
	// LoadIndex includes a wider per-artifact index window around hits.
	LoadIndex bool
	// SearchByIndex selects semantic search over exhaustive enumeration.
	SearchByIndex bool
	// ScoreThreshold drops semantic hits scoring below it.
	ScoreThreshold float32
}

// Load retrieves previously offloaded knowledge. With SearchByIndex it runs
// semantic search over chunk embeddings restricted by the filter; otherwise
// it enumerates all matching artifacts with aggregate statistics and
// head/tail previews. Both strategies format output through the same
// two-section document so downstream prompt assembly is uniform.
func (s *Service) Load(ctx context.Context, opts LoadOptions) (string, error) {
	if dl, ok := s.logger.(logging.DomainLogger); ok {
		defer dl.StartTimer("knowledge.load")()
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.SearchByIndex {
		return s.loadBySearch(ctx, opts)
	}
	return s.loadExhaustive(opts)
}

func (s *Service) loadBySearchFilter(opts LoadOptions) map[string]string {
	filter := map[string]string{}
	for k, v := range opts.Filter {
		filter[k] = v
	}
	if opts.Workspace != "" {
		filter[tagWorkspace] = opts.Workspace
	}
	return filter
}

func (s *Service) loadBySearch(ctx context.Context, opts LoadOptions) (string, error) {
	filter := s.loadBySearchFilter(opts)
	hits, err := s.vectors.Search(ctx, s.collection, opts.Query, filter, opts.ScoreThreshold, opts.TopK)
	if err != nil {
		return "", fmt.Errorf("load by search: %w", err)
	}

	doc := &contextDocument{
		Stats: fmt.Sprintf("%d chunk hits for %q", len(hits), opts.Query),
	}

	seen := map[string]bool{}
	for _, h := range hits {
		artifactID := h.Metadata[tagArtifactID]
		if artifactID == "" {
			artifactID = h.ID
		}
		doc.Chunks = append(doc.Chunks, chunkEntry{
			ArtifactID: artifactID,
			ChunkIndex: atoiSafe(h.Metadata[tagChunkIndex]),
			Score:      h.Score,
			Content:    h.Content,
		})

		if !opts.LoadIndex || seen[artifactID] {
			continue
		}
		seen[artifactID] = true
		// Wider index window per matched artifact: up to 2×top_k chunks.
		window, err := s.vectors.Query(ctx, s.collection, map[string]string{tagArtifactID: artifactID}, 2*opts.TopK)
		if err != nil {
			s.logger.Warn("knowledge.load.window_failed", "artifact_id", artifactID, "error", err)
			continue
		}
		entry := indexEntry{ArtifactID: artifactID, ChunkCount: len(window)}
		if e := s.catalogEntry(opts.Workspace, artifactID); e != nil {
			entry.Summary = e.artifact.Summary
			entry.ChunkCount = e.artifact.ChunkCount
		}
		doc.Index = append(doc.Index, entry)
	}

	return doc.render(), nil
}

func (s *Service) loadExhaustive(opts LoadOptions) (string, error) {
	s.mu.RLock()
	entries := make([]*catalogEntry, 0)
	var chunkTotal int
	for _, e := range s.catalog[opts.Workspace] {
		if !metadataMatches(e.artifact.Metadata, opts.Filter) {
			continue
		}
		entries = append(entries, e)
		chunkTotal += len(e.chunks)
	}
	s.mu.RUnlock()

	doc := &contextDocument{
		Stats: fmt.Sprintf("%d artifacts, %d chunks total", len(entries), chunkTotal),
	}
	for _, e := range entries {
		doc.Index = append(doc.Index, s.entryToIndex(e))
		if !opts.LoadContent {
			continue
		}
		for _, c := range e.chunks {
			doc.Chunks = append(doc.Chunks, chunkEntry{
				ArtifactID: c.ArtifactID,
				ChunkIndex: c.Index,
				Content:    c.Content,
			})
		}
		if len(e.chunks) == 0 {
			doc.Chunks = append(doc.Chunks, chunkEntry{ArtifactID: e.artifact.ID, Content: e.artifact.Content})
		}
	}
	return doc.render(), nil
}

// persist chunks, stores and indexes one artifact. Failures are logged and
// swallowed: the working state stays the source of truth even when the
// durable copy failed. The first failure is returned so the caller can
// report the batch as degraded.
func (s *Service) persist(ctx context.Context, workspace string, a *core.Artifact) error {
	chunks := s.chunker.Split(a)

	s.mu.Lock()
	ws, ok := s.catalog[workspace]
	if !ok {
		ws = map[string]*catalogEntry{}
		s.catalog[workspace] = ws
	}
	ws[a.ID] = &catalogEntry{artifact: a, chunks: chunks}
	s.mu.Unlock()

	var firstErr error
	if _, err := s.repo.Upload(ctx, artifactKey(workspace, a.ID), []byte(a.Content), a.Metadata); err != nil {
		s.logger.Warn("knowledge.persist.upload_failed", "artifact_id", a.ID, "error", err)
		firstErr = err
	}
	for _, c := range chunks {
		if _, err := s.repo.Upload(ctx, chunkKey(workspace, a.ID, c.Index), []byte(c.Content), nil); err != nil {
			s.logger.Warn("knowledge.persist.chunk_upload_failed", "chunk_id", c.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if !a.Searchable() {
		return firstErr
	}
	items := make([]core.VectorItem, 0, len(chunks)+1)
	if len(chunks) == 0 {
		items = append(items, core.VectorItem{
			ID:      a.ID,
			Content: a.Content,
			Metadata: map[string]string{
				tagArtifactID: a.ID, tagBizID: a.BizID(), tagChunkIndex: "0", tagWorkspace: workspace,
			},
		})
	}
	for _, c := range chunks {
		items = append(items, core.VectorItem{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				tagArtifactID: a.ID, tagBizID: a.BizID(), tagChunkIndex: fmt.Sprintf("%d", c.Index), tagWorkspace: workspace,
			},
		})
	}
	if err := s.vectors.Upsert(ctx, s.collection, items); err != nil {
		s.logger.Warn("knowledge.persist.index_failed", "artifact_id", a.ID, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) catalogEntry(workspace, artifactID string) *catalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ws, ok := s.catalog[workspace]; ok {
		return ws[artifactID]
	}
	return nil
}

func (s *Service) indexEntryFor(workspace string, a *core.Artifact) indexEntry {
	if e := s.catalogEntry(workspace, a.ID); e != nil {
		return s.entryToIndex(e)
	}
	return indexEntry{ArtifactID: a.ID, Summary: a.Summary, ChunkCount: a.ChunkCount}
}

// entryToIndex builds an index row with bounded head and tail previews,
// never the full body.
func (s *Service) entryToIndex(e *catalogEntry) indexEntry {
	entry := indexEntry{
		ArtifactID: e.artifact.ID,
		Summary:    e.artifact.Summary,
		ChunkCount: e.artifact.ChunkCount,
	}
	n := s.previews
	if n <= 0 {
		n = core.DefaultPreviewChunks
	}
	chunks := e.chunks
	if len(chunks) <= 2*n {
		for _, c := range chunks {
			entry.Head = append(entry.Head, c.Content)
		}
		return entry
	}
	for _, c := range chunks[:n] {
		entry.Head = append(entry.Head, c.Content)
	}
	for _, c := range chunks[len(chunks)-n:] {
		entry.Tail = append(entry.Tail, c.Content)
	}
	return entry
}

func artifactKey(workspace, artifactID string) string {
	return fmt.Sprintf("%s/artifacts/%s", workspace, artifactID)
}

func chunkKey(workspace, artifactID string, index int) string {
	return fmt.Sprintf("%s/chunks/%s/%04d", workspace, artifactID, index)
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func atoiSafe(s string) int {
	var n int
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
