// Package gcs declares the storage interface shared by the API, the worker
// and the CLI.
package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations. It
// enables mocking storage in tests.
type StorageService interface {
	// UploadFile uploads a local file to a storage bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// UploadBytes uploads an in-memory payload to a storage bucket under the
	// given object name and returns the resulting gs:// URI.
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) (string, error)

	// FetchFromGCS downloads file bytes from the given storage URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)

	// ExtractFilenameFromGCSURI extracts the filename from a storage URI.
	ExtractFilenameFromGCSURI(uri string) string
}
