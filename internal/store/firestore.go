package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDocs is a DocStore backed by Cloud Firestore.
type FirestoreDocs struct {
	client *firestore.Client
}

func NewFirestoreDocs(client *firestore.Client) *FirestoreDocs {
	return &FirestoreDocs{client: client}
}

// Insert implements DocStore; Firestore assigns the document ID.
func (d *FirestoreDocs) Insert(ctx context.Context, collection string, doc models.Scan) (string, error) {
	docRef, _, err := d.client.Collection(collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}
	return docRef.ID, nil
}

// Get implements DocStore.
func (d *FirestoreDocs) Get(ctx context.Context, collection, id string) (models.ScanRecord, error) {
	snap, err := d.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.ScanRecord{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return models.ScanRecord{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	var scan models.Scan
	if err := snap.DataTo(&scan); err != nil {
		return models.ScanRecord{}, fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}
	return models.ScanRecord{ID: snap.Ref.ID, Scan: scan}, nil
}

// QueryOrdered implements DocStore. Owner-scoped queries need a composite
// index on (ownerId, <orderField>).
func (d *FirestoreDocs) QueryOrdered(ctx context.Context, q Query) ([]models.ScanRecord, error) {
	fq := d.client.Collection(q.Collection).Query
	if q.OwnerID != "" {
		fq = fq.Where("ownerId", "==", q.OwnerID)
	}
	dir := firestore.Asc
	if q.Direction == Descending {
		dir = firestore.Desc
	}
	fq = fq.OrderBy(q.OrderField, dir)
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	it := fq.Documents(ctx)
	defer it.Stop()

	var records []models.ScanRecord
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
		}
		var scan models.Scan
		if err := snap.DataTo(&scan); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", q.Collection, snap.Ref.ID, err)
		}
		records = append(records, models.ScanRecord{ID: snap.Ref.ID, Scan: scan})
	}
	return records, nil
}
