package repository

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/contextmesh/core"
)

// LocalRepository persists artifacts as plain files beneath a root
// directory. Keys map to relative paths; path traversal outside the root is
// rejected. Writes to distinct keys are independent; concurrent writes to
// the same key are last-write-wins.
type LocalRepository struct {
	root string
}

var _ core.ArtifactRepository = (*LocalRepository)(nil)

// NewLocalRepository creates the root directory if needed and returns a
// filesystem backed repository.
func NewLocalRepository(root string) (*LocalRepository, error) {
	if root == "" {
		return nil, fmt.Errorf("local repository: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local repository: create root: %w", err)
	}
	return &LocalRepository{root: root}, nil
}

// resolve maps a key to an absolute path inside the root.
func (r *LocalRepository) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(r.root, clean), nil
}

// Upload writes data to the file for key, creating parent directories as
// needed, and returns the absolute path. Metadata is not persisted by this
// backend.
func (r *LocalRepository) Upload(_ context.Context, key string, data []byte, _ map[string]string) (string, error) {
	p, err := r.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return p, nil
}

// Read returns the file contents for key or ErrNotFound.
func (r *LocalRepository) Read(_ context.Context, key string) ([]byte, error) {
	p, err := r.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// List walks the tree under root and returns files whose key starts with
// prefix.
func (r *LocalRepository) List(_ context.Context, prefix string) ([]core.FileInfo, error) {
	infos := make([]core.FileInfo, 0)
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, core.FileInfo{
			Key:      key,
			Filename: d.Name(),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return infos, nil
}
