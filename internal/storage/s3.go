package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nadzzz/voicebox/internal/config"
)

// S3Sink uploads transcripts to an S3-compatible bucket.
type S3Sink struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Sink connects to the configured endpoint and checks that the bucket
// exists.
func NewS3Sink(ctx context.Context, cfg config.S3Config) (*S3Sink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	slog.Info("s3 transcript archive ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Name returns the backend identifier.
func (s *S3Sink) Name() string { return "s3" }

// Store uploads text as <prefix><stem>_transcript.txt.
func (s *S3Sink) Store(ctx context.Context, source, text string) (string, error) {
	key := s.prefix + TranscriptName(source)
	_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(text), int64(len(text)), minio.PutObjectOptions{
		ContentType:  "text/plain; charset=utf-8",
		UserMetadata: map[string]string{"uploaded-at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("upload transcript: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
