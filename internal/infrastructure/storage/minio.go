package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/callsight-team/callsight/pkg/config"
)

// MinIOClient wraps recording storage operations
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string // Public URL for generating accessible URLs (e.g., https://storage.example.com)
}

// NewMinIOClient creates a new MinIO client for the recordings bucket
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: cfg.PublicURL,
	}

	ctx := context.Background()
	if err := client.ensureBucketWithPolicy(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// ensureBucketWithPolicy ensures the recordings bucket exists and has a
// public read policy. The transcription provider downloads recordings by
// URL, so presigned GETs must resolve without credentials.
func (m *MinIOClient) ensureBucketWithPolicy(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, m.bucket)

	err = m.client.SetBucketPolicy(ctx, m.bucket, policy)
	if err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	return nil
}

// UploadRecording uploads a call recording to the bucket
func (m *MinIOClient) UploadRecording(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload recording: %w", err)
	}

	return nil
}

// PresignedGetURL gets a presigned URL for fetching a recording
func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	// When MinIO sits behind a reverse proxy, rewrite the internal endpoint
	// to the public one. The path and query (including the signature) stay
	// intact.
	if m.publicURL != "" {
		urlStr := url.String()
		bucketPos := len(url.Scheme) + 3 + len(url.Host) // "https://" + host
		if bucketPos < len(urlStr) {
			pathAndQuery := urlStr[bucketPos:] // /bucket/object?query
			return m.publicURL + pathAndQuery, nil
		}
	}

	return url.String(), nil
}

// DeleteRecording removes a recording from the bucket
func (m *MinIOClient) DeleteRecording(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

// ListRecordings lists recording object keys under a prefix
func (m *MinIOClient) ListRecordings(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	objectCh := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}
