package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
	})
}

func TestS3Backend_ApplySSE(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		algorithm string
		kmsKey    string
	}{
		{name: "disabled", config: Config{Bucket: "b"}},
		{name: "AES256", config: Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "AES256"}, algorithm: "AES256"},
		{name: "KMS without key", config: Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "aws:kms"}, algorithm: "aws:kms"},
		{name: "KMS with key", config: Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"}, algorithm: "aws:kms", kmsKey: "key-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{config: tt.config}
			input := &s3.PutObjectInput{}
			b.applySSE(input)
			assert.Equal(t, tt.algorithm, string(input.ServerSideEncryption))
			if tt.kmsKey == "" {
				assert.Nil(t, input.SSEKMSKeyId)
			} else {
				require.NotNil(t, input.SSEKMSKeyId)
				assert.Equal(t, tt.kmsKey, *input.SSEKMSKeyId)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "public base url wins",
			config:   Config{Bucket: "media", PublicBaseURL: "https://cdn.indrealty.org/", Endpoint: "http://localhost:9000"},
			expected: "https://cdn.indrealty.org/images/a.png",
		},
		{
			name:     "path style endpoint",
			config:   Config{Bucket: "media", Endpoint: "http://localhost:9000", UsePathStyle: true},
			expected: "http://localhost:9000/media/images/a.png",
		},
		{
			name:     "virtual hosted endpoint",
			config:   Config{Bucket: "media", Endpoint: "https://storage.example.com"},
			expected: "https://media.storage.example.com/images/a.png",
		},
		{
			name:     "aws default",
			config:   Config{Bucket: "media", Region: "ap-south-1"},
			expected: "https://media.s3.ap-south-1.amazonaws.com/images/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := PublicURL(tt.config, "/images/a.png")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

// TestS3Backend_Integration runs against a real S3 or MinIO when configured
func TestS3Backend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	endpoint := os.Getenv("S3_ENDPOINT")
	bucket := os.Getenv("S3_BUCKET")
	if endpoint == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	backend, err := New(Config{
		Region:                 "us-east-1",
		Bucket:                 bucket,
		AccessKeyID:            os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey:        os.Getenv("S3_SECRET_ACCESS_KEY"),
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := "images/test/integration.png"
	data := []byte("\x89PNG integration")

	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader(data), realtycms.UploadParams{ObjectKey: key, MimeType: "image/png"}))

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", meta.ContentType)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, data, got)

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.GetObjectMeta(ctx, key)
	assert.ErrorIs(t, err, realtycms.ErrObjectNotFound)
}
