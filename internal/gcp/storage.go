package gcp

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// IsNotFound reports whether err is a GCS "object does not exist" error,
// whether it surfaced as the storage sentinel or as a raw 404.
func IsNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// SaveBytesToGCS writes data to a GCS object. Writing the same bytes to the same
// object twice is a no-op; different bytes overwrite.
func SaveBytesToGCS(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, data []byte) error {
	sum := md5.Sum(data)
	obj := bucket.Object(objectName)

	attrs, err := obj.Attrs(ctx)
	switch {
	case err == nil && bytes.Equal(attrs.MD5, sum[:]):
		slog.Info("SKIPPING: Object already holds identical content.", "object", objectName)
		return nil
	case err != nil && !IsNotFound(err):
		return fmt.Errorf("failed to stat GCS object %s: %w", objectName, err)
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	writer.MD5 = sum[:]

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "object", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		slog.Error("Failed to close GCS writer", "object", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}
