package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/google/uuid"
)

const memoryURLScheme = "mem://"

type memoryObject struct {
	data    []byte
	created time.Time
}

// MemoryBlobs is an in-process BlobStore and BlobLister.
type MemoryBlobs struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	now     func() time.Time
}

// NewMemoryBlobs returns an empty MemoryBlobs.
func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{objects: make(map[string]memoryObject), now: time.Now}
}

// SetClock overrides the creation-time source.
func (m *MemoryBlobs) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryBlobs) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.objects[key]; ok && bytes.Equal(existing.data, data) {
		return nil
	}
	m.objects[key] = memoryObject{data: bytes.Clone(data), created: m.now()}
	return nil
}

func (m *MemoryBlobs) URLFor(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return memoryURLScheme + key, nil
}

// Fetch returns the bytes behind a URL produced by URLFor.
func (m *MemoryBlobs) Fetch(url string) ([]byte, error) {
	key, ok := strings.CutPrefix(url, memoryURLScheme)
	if !ok {
		return nil, fmt.Errorf("not a memory blob url: %s", url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return bytes.Clone(obj.data), nil
}

func (m *MemoryBlobs) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BlobInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, BlobInfo{Key: key, Created: obj.created, Size: int64(len(obj.data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryBlobs) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// MemoryDocs is an in-process DocStore. Only the "timestamp" field can be ordered on.
type MemoryDocs struct {
	mu          sync.Mutex
	collections map[string][]models.ScanRecord
}

// NewMemoryDocs returns an empty MemoryDocs.
func NewMemoryDocs() *MemoryDocs {
	return &MemoryDocs{collections: make(map[string][]models.ScanRecord)}
}

func (m *MemoryDocs) Insert(ctx context.Context, collection string, doc models.Scan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.collections[collection] = append(m.collections[collection], models.ScanRecord{ID: id, Scan: doc})
	return id, nil
}

func (m *MemoryDocs) Get(ctx context.Context, collection, id string) (models.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.collections[collection] {
		if rec.ID == id {
			return rec, nil
		}
	}
	return models.ScanRecord{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
}

func (m *MemoryDocs) QueryOrdered(ctx context.Context, q Query) ([]models.ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.OrderField != "timestamp" {
		return nil, fmt.Errorf("unsupported order field %q", q.OrderField)
	}
	m.mu.Lock()
	var out []models.ScanRecord
	for _, rec := range m.collections[q.Collection] {
		if q.OwnerID == "" || rec.OwnerID == q.OwnerID {
			out = append(out, rec)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if q.Direction == Descending {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Len returns the number of documents in collection.
func (m *MemoryDocs) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}
