// Package gcsuploader moves administration files in and out of Google Cloud
// Storage. Uploaded files are kept verbatim; the parsed transactions live in
// BigQuery, so GCS stays the source of truth for reparsing.
package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// UploadFile uploads a local file to a GCS bucket under the given object
// name. Assumes Application Default Credentials are configured.
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	if _, err := upload(ctx, bucketName, objectName, f); err != nil {
		return err
	}
	return nil
}

// UploadBytes uploads an in-memory payload to a GCS bucket and returns the
// gs:// URI of the created object.
func UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) (string, error) {
	return upload(ctx, bucketName, objectName, bytes.NewReader(data))
}

func upload(ctx context.Context, bucketName, objectName string, r io.Reader) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucketName, objectName), nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI, e.g.
// gs://my-bucket/uploads/administratie.xaf.
func FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := splitGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI:
// "gs://bucket/folder/file.xaf" yields "file.xaf".
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

func splitGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}
