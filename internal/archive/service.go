// Package archive keeps the original upload files in object storage so the
// source of every bulk import can be produced later.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Service struct {
	client *minio.Client
	bucket string
}

// NewService creates an archive service backed by a MinIO bucket.
func NewService(cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Service{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// StoreImport archives an uploaded file under the importing user, keyed by
// timestamp so repeated uploads of the same filename never collide. Returns
// the object name.
func (s *Service) StoreImport(ctx context.Context, userID, filename string, data []byte) (string, error) {
	objectName := fmt.Sprintf("imports/%s/%s-%s", userID, time.Now().UTC().Format("20060102T150405Z"), filepath.Base(filename))

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload import file: %w", err)
	}
	return objectName, nil
}

// PresignedURL generates a time-limited download link for an archived file.
func (s *Service) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("generate presigned url: %w", err)
	}
	return url.String(), nil
}
