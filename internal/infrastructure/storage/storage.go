// Package storage implements outbound.StorageService, the persistence
// target for rendered report and ticket artefacts.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// LocalStorage writes artefacts to a directory on disk. This is the
// default backend: CISO digests and ticket bodies generated during
// development or in a single-node deployment never need to leave the
// filesystem.
type LocalStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalStorage creates a filesystem-backed storage service rooted at
// baseDir.
func NewLocalStorage(baseDir string, logger *zap.Logger) *LocalStorage {
	return &LocalStorage{baseDir: baseDir, logger: logger}
}

func (s *LocalStorage) Write(ctx context.Context, path string, data []byte) error {
	full := filepath.Join(s.baseDir, filepath.Clean("/"+path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create artefact directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artefact %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) Read(ctx context.Context, path string) ([]byte, error) {
	full := filepath.Join(s.baseDir, filepath.Clean("/"+path))
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read artefact %s: %w", path, err)
	}
	return data, nil
}

// S3Storage writes artefacts to an S3 bucket, for deployments that want
// durable, multi-node-accessible report storage and CloudFront-fronted
// delivery to CISOs and ticketing systems.
type S3Storage struct {
	bucket     string
	keyPrefix  string
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	logger     *zap.Logger
}

// NewS3Storage creates an S3-backed storage service. keyPrefix namespaces
// all object keys (e.g. "reports/") under the shared bucket.
func NewS3Storage(region, bucket, keyPrefix, endpoint string, logger *zap.Logger) (*S3Storage, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Storage{
		bucket:     bucket,
		keyPrefix:  keyPrefix,
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
		logger:     logger,
	}, nil
}

func (s *S3Storage) key(path string) string {
	return s.keyPrefix + path
}

func (s *S3Storage) Write(ctx context.Context, path string, data []byte) error {
	key := s.key(path)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		s.logger.Error("s3 artefact upload failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload artefact %s: %w", path, err)
	}
	return nil
}

func (s *S3Storage) Read(ctx context.Context, path string) ([]byte, error) {
	key := s.key(path)
	buf := &aws.WriteAtBuffer{}
	if _, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("failed to download artefact %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
