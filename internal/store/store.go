// Package store defines the blob and document store contracts the scan
// pipeline persists into, with Cloud Storage, Firestore and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/models"
)

// ErrNotFound is returned when a blob or document does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore stores image bytes under a key.
type BlobStore interface {
	// Put is idempotent for identical (key, data) and overwrites otherwise.
	Put(ctx context.Context, key string, data []byte) error
	// URLFor returns a URL authenticated clients can fetch the bytes from.
	URLFor(ctx context.Context, key string) (string, error)
}

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Key     string
	Created time.Time
	Size    int64
}

// BlobLister enumerates and deletes blobs; the janitor needs it.
type BlobLister interface {
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Delete(ctx context.Context, key string) error
}

// Direction is the sort order of a Query.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Query selects scan documents from a collection.
type Query struct {
	Collection string
	OrderField string
	Direction  Direction
	// OwnerID restricts results to one principal when non-empty.
	OwnerID string
	// Limit caps the result size when positive.
	Limit int
}

// DocStore stores scan metadata documents.
type DocStore interface {
	Insert(ctx context.Context, collection string, doc models.Scan) (string, error)
	Get(ctx context.Context, collection, id string) (models.ScanRecord, error)
	QueryOrdered(ctx context.Context, q Query) ([]models.ScanRecord, error)
}
