package repository

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/contextmesh/core"
)

// InMemoryRepository is a trivial in-process ArtifactRepository useful for
// tests, examples and single-process prototypes. It keeps all objects in a
// map guarded by an RWMutex. Data is copied on upload / read to avoid
// accidental external mutation of internal buffers.
//
// This implementation is intentionally minimal; it does not enforce
// retention limits, size quotas, or eviction. For production, prefer a
// durable implementation (local filesystem, object storage) that survives
// process restarts.
type InMemoryRepository struct {
	mu      sync.RWMutex
	objects map[string]inMemoryObject
}

type inMemoryObject struct {
	data     []byte
	metadata map[string]string
	modified time.Time
}

var _ core.ArtifactRepository = (*InMemoryRepository)(nil)

// NewInMemoryRepository returns an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{objects: map[string]inMemoryObject{}}
}

// Upload stores (or overwrites) the bytes under key. The input slice is
// copied before storage. The resolved path equals the key.
func (r *InMemoryRepository) Upload(_ context.Context, key string, data []byte, metadata map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	r.objects[key] = inMemoryObject{data: cp, metadata: md, modified: time.Now().UTC()}
	return key, nil
}

// Read returns a copy of the stored bytes or ErrNotFound.
func (r *InMemoryRepository) Read(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

// List returns stored objects whose key starts with prefix, sorted by key.
func (r *InMemoryRepository) List(_ context.Context, prefix string) ([]core.FileInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]core.FileInfo, 0)
	for key, obj := range r.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, core.FileInfo{
			Key:      key,
			Filename: path.Base(key),
			Size:     int64(len(obj.data)),
			Modified: obj.modified,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
