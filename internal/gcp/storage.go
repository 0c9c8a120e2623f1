package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/geminiocr/internal/models"
	"google.golang.org/api/googleapi"
)

const gcsScheme = "gs://"

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// IsGCSURI reports whether dest names a Cloud Storage object.
func IsGCSURI(dest string) bool {
	return strings.HasPrefix(dest, gcsScheme)
}

// ParseGCSURI splits gs://bucket/object into its bucket and object names.
func ParseGCSURI(uri string) (string, string, error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("not a gs:// URI: %s", uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
		return "", "", fmt.Errorf("gs:// URI must name a bucket and an object: %s", uri)
	}
	return bucket, object, nil
}

// GCSWriter persists the output document to Cloud Storage.
type GCSWriter struct {
	client    *storage.Client
	noClobber bool
}

// NewGCSWriter creates a writer. With noClobber set an existing object is never replaced.
func NewGCSWriter(ctx context.Context, noClobber bool) (*GCSWriter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSWriter{client: client, noClobber: noClobber}, nil
}

// Write uploads content to a gs:// URI.
func (w *GCSWriter) Write(ctx context.Context, uri string, content []byte) error {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return SaveToGCS(ctx, w.client.Bucket(bucket), object, content, w.noClobber)
}

func (w *GCSWriter) Close() error {
	return w.client.Close()
}

// SaveToGCS writes content to a GCS object. The object only becomes visible once
// the writer closes successfully, so a failed upload leaves no partial object.
func SaveToGCS(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, noClobber bool) error {
	obj := bucket.Object(objectName)
	if noClobber {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	writer := obj.NewWriter(ctx)
	writer.ContentType = "text/markdown; charset=utf-8"

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "object", objectName, "error", err)
		return fmt.Errorf("%w: failed to write to GCS: %v", models.ErrPersistence, err)
	}

	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%w: object %s already exists", models.ErrPersistence, objectName)
		}
		slog.Error("Failed to close GCS writer", "object", objectName, "error", err)
		return fmt.Errorf("%w: failed to finalize GCS write: %v", models.ErrPersistence, err)
	}
	return nil
}
