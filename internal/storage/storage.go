package storage

import "context"

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations used for
// publishing daily reports and fetching them back.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// Noop discards uploads. It stands in when STORAGE_ENABLED is false.
type Noop struct{}

func (Noop) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) { return nil, nil }

func (Noop) DownloadObject(ctx context.Context, key, destPath string) error { return nil }

func (Noop) UploadObject(ctx context.Context, key string, data []byte) error { return nil }

var _ ObjectStorage = Noop{}
