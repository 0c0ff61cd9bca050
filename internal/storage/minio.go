package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient implements ObjectStorage for any S3-compatible endpoint.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// New returns a MinioClient, or Noop when storage is disabled.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewMinioClient(cfg)
}

func NewMinioClient(cfg config.StorageConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// splitEndpoint strips a scheme from endpoint; an explicit scheme wins over useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	default:
		return strings.TrimPrefix(endpoint, "//"), useSSL
	}
}

// ListObjects lists all objects for a given prefix.
func (c *MinioClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	for object := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("storage list failed: %w", object.Err)
		}
		results = append(results, ObjectInfo{Key: object.Key, Size: object.Size})
	}
	return results, nil
}

// DownloadObject downloads an object to the provided destination path.
func (c *MinioClient) DownloadObject(ctx context.Context, key, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := c.client.FGetObject(ctx, c.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("storage download %s failed: %w", key, err)
	}
	return nil
}

// UploadObject stores data under key.
func (c *MinioClient) UploadObject(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return fmt.Errorf("storage upload %s failed: %w", key, err)
	}
	return nil
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

var _ ObjectStorage = (*MinioClient)(nil)
