// Package media stores checklist photos in an S3-compatible object store.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PhotoStore wraps a MinIO bucket holding form photos.
type PhotoStore struct {
	client *minio.Client
	bucket string
}

// Config holds the object-store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewPhotoStore connects to the object store and ensures the bucket exists.
func NewPhotoStore(ctx context.Context, cfg Config) (*PhotoStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &PhotoStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads one photo and returns its object key. Keys are grouped by
// vehicle so an operator can browse a single bus's photos in the console.
func (p *PhotoStore) Put(ctx context.Context, carID, filename, contentType string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("checklists/%s/%s%s", carID, uuid.New().String(), ext)

	_, err := p.client.PutObject(ctx, p.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("store photo %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a temporary download link for a stored photo.
func (p *PhotoStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign photo %s: %w", key, err)
	}
	return u.String(), nil
}
