package core

import (
	"context"
	"fmt"
	"time"
)

// Artifact is a stored unit of knowledge content, optionally split into
// ordered chunks. It is owned by whichever WorkingState registered it and may
// additionally be persisted through an ArtifactRepository.
//
// Invariant: once Chunked is true, ChunkCount and the chunk indices must stay
// consistent with the underlying stored chunks; chunks are never reordered
// after creation.
type Artifact struct {
	ID         string            `json:"artifact_id"`
	Content    string            `json:"content"`
	Summary    string            `json:"summary"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Chunked    bool              `json:"chunked"`
	ChunkCount int               `json:"chunk_count"`
}

// NewArtifact creates an unchunked artifact with a fresh id.
func NewArtifact(content, summary string) *Artifact {
	return &Artifact{ID: NewID(), Content: content, Summary: summary, Metadata: map[string]string{}}
}

// Searchable reports whether the artifact should be indexed for semantic
// search. Artifacts opt out via the "searchable" metadata tag; content-less
// artifacts are never indexed.
func (a *Artifact) Searchable() bool {
	if a.Content == "" {
		return false
	}
	if v, ok := a.Metadata["searchable"]; ok {
		return v != "false"
	}
	return true
}

// Tag sets a metadata tag, allocating the map if needed.
func (a *Artifact) Tag(key, value string) {
	if a.Metadata == nil {
		a.Metadata = map[string]string{}
	}
	a.Metadata[key] = value
}

// BizID returns the batch/group tag assigned during offload, if any.
func (a *Artifact) BizID() string { return a.Metadata["biz_id"] }

// Chunk is one ordered slice of an artifact's content. Index defines document
// order and is significant.
type Chunk struct {
	ID         string `json:"chunk_id"`
	ArtifactID string `json:"artifact_id"`
	Index      int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// ChunkID builds the canonical chunk identifier for an artifact and index.
func ChunkID(artifactID string, index int) string {
	return fmt.Sprintf("%s#%04d", artifactID, index)
}

// FileInfo describes one stored object returned by ArtifactRepository.List.
type FileInfo struct {
	Key      string
	Filename string
	Size     int64
	Modified time.Time
}

// ArtifactRepository defines the interface for durable artifact persistence.
// Implementations (local filesystem, object storage) must be safe for
// concurrent use by multiple contexts; writes to distinct keys are
// independent while concurrent writes to the same key are last-write-wins.
type ArtifactRepository interface {
	// Upload stores data under key and returns the resolved storage path.
	Upload(ctx context.Context, key string, data []byte, metadata map[string]string) (string, error)
	// Read returns the stored bytes for key.
	Read(ctx context.Context, key string) ([]byte, error)
	// List enumerates stored objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}
