// Package storage provides a domain-agnostic interface for S3-compatible
// object storage. The pets module uses it for photo uploads via presigned URLs.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL carries a time-limited URL plus the file key it addresses.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageService is the object storage contract the pets module depends
// on. Photo uploads and downloads go through presigned URLs so image
// bytes never pass through the API server.
type StorageService interface {
	// GenerateUploadURL returns a presigned PUT URL. folder is the key
	// prefix, e.g. "pets/42"; the returned FileKey includes a random
	// suffix so uploads never overwrite each other.
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error)

	// GenerateDownloadURL returns a presigned GET URL for an existing key.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DownloadFile streams an object. The caller closes the reader.
	DownloadFile(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// DeleteObject removes an object from storage.
	DeleteObject(ctx context.Context, bucket, fileKey string) error

	// UploadFile writes an object server-side and returns the file key.
	UploadFile(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// ValidateContentType rejects MIME types outside the photo allowlist.
	ValidateContentType(contentType string) error

	// ValidateFileSize rejects empty or oversized uploads.
	ValidateFileSize(sizeBytes int64) error

	// GetMaxFileSize returns the configured maximum file size in bytes.
	GetMaxFileSize() int64
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
