package gcsuploader

import (
	"context"

	"github.com/HoltermanP/VermogenVitaal/internal/gcs"
)

// StorageService is re-exported from the shared package so callers can
// depend on gcsuploader alone.
type StorageService = gcs.StorageService

// GCSStorageService is the concrete StorageService backed by Google Cloud
// Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFile(ctx, bucketName, objectName, filePath)
}

func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) (string, error) {
	return UploadBytes(ctx, bucketName, objectName, data)
}

func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, gcsURI)
}

func (s *GCSStorageService) ExtractFilenameFromGCSURI(uri string) string {
	return ExtractFilenameFromGCSURI(uri)
}

var _ gcs.StorageService = (*GCSStorageService)(nil)
