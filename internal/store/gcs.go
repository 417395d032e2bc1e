package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/prescriptionreader/internal/gcp"
	"google.golang.org/api/iterator"
)

const imageContentType = "image/jpeg"

// GCSBlobs is a BlobStore and BlobLister over one Cloud Storage bucket.
type GCSBlobs struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewGCSBlobs returns a blob store writing to bucket.
func NewGCSBlobs(client *storage.Client, bucket string) *GCSBlobs {
	return &GCSBlobs{bucket: client.Bucket(bucket), bucketName: bucket}
}

// Put implements BlobStore.
func (b *GCSBlobs) Put(ctx context.Context, key string, data []byte) error {
	return gcp.SaveBytesToGCS(ctx, b.bucket, key, imageContentType, data)
}

// URLFor implements BlobStore. It returns the object's media link, which
// requires an authorized request to download.
func (b *GCSBlobs) URLFor(ctx context.Context, key string) (string, error) {
	attrs, err := b.bucket.Object(key).Attrs(ctx)
	if gcp.IsNotFound(err) {
		return "", fmt.Errorf("gs://%s/%s: %w", b.bucketName, key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read attributes of gs://%s/%s: %w", b.bucketName, key, err)
	}
	return attrs.MediaLink, nil
}

// List implements BlobLister.
func (b *GCSBlobs) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var blobs []BlobInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", b.bucketName, prefix, err)
		}
		blobs = append(blobs, BlobInfo{Key: attrs.Name, Created: attrs.Created, Size: attrs.Size})
	}
	return blobs, nil
}

// Delete implements BlobLister. Deleting a missing object is not an error.
func (b *GCSBlobs) Delete(ctx context.Context, key string) error {
	err := b.bucket.Object(key).Delete(ctx)
	if err != nil && !gcp.IsNotFound(err) {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", b.bucketName, key, err)
	}
	return nil
}
