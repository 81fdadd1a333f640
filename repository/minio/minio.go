// Package minio provides an object-storage backed core.ArtifactRepository
// using the MinIO client, which speaks the S3 wire protocol and therefore
// also works against AWS S3 and compatible services.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/repository"
)

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Repository implements core.ArtifactRepository on top of a MinIO bucket.
type Repository struct {
	mc     *minio.Client
	bucket string
}

var _ core.ArtifactRepository = (*Repository)(nil)

// New validates the config and constructs the client. It does not touch the
// network; call EnsureBucket before first use if the bucket may not exist.
func New(cfg Config) (*Repository, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio repository: endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio repository: access_key and secret_key are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio repository: bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio repository: create client: %w", err)
	}

	return &Repository{mc: mc, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (r *Repository) EnsureBucket(ctx context.Context) error {
	exists, err := r.mc.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", r.bucket, err)
	}
	if !exists {
		if err := r.mc.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", r.bucket, err)
		}
	}
	return nil
}

// Upload stores data under key with the metadata attached as user metadata
// and returns the bucket-qualified path.
func (r *Repository) Upload(ctx context.Context, key string, data []byte, metadata map[string]string) (string, error) {
	_, err := r.mc.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return r.bucket + "/" + key, nil
}

// Read returns the object bytes for key, or repository.ErrNotFound when the
// key does not exist.
func (r *Repository) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.mc.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// List enumerates objects under prefix.
func (r *Repository) List(ctx context.Context, prefix string) ([]core.FileInfo, error) {
	infos := make([]core.FileInfo, 0)
	for obj := range r.mc.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		infos = append(infos, core.FileInfo{
			Key:      obj.Key,
			Filename: path.Base(obj.Key),
			Size:     obj.Size,
			Modified: obj.LastModified,
		})
	}
	return infos, nil
}
