package storage

import (
	"testing"

	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"//minio:9000", false, "minio:9000", false},
	}
	for _, tt := range tests {
		host, secure := splitEndpoint(tt.in, tt.useSSL)
		assert.Equal(t, tt.wantHost, host, tt.in)
		assert.Equal(t, tt.wantSecure, secure, tt.in)
	}
}

func TestNewStorage(t *testing.T) {
	s, err := New(config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, s)

	_, err = New(config.StorageConfig{Enabled: true, Endpoint: "minio:9000"})
	assert.Error(t, err)

	s, err = New(config.StorageConfig{
		Enabled: true, Endpoint: "http://minio:9000", AccessKey: "k", SecretKey: "s", Bucket: "reports",
	})
	require.NoError(t, err)
	assert.IsType(t, &MinioClient{}, s)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("reports/2025-03-10.csv"))
	assert.Equal(t, "application/json", contentType("a.JSON"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
