package store

import (
	"context"
	"testing"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobs_PutURLFetch(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlobs()

	_, err := b.URLFor(ctx, "prescriptions/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put(ctx, "prescriptions/a.jpg", []byte("jpeg")))
	url, err := b.URLFor(ctx, "prescriptions/a.jpg")
	require.NoError(t, err)

	data, err := b.Fetch(url)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
}

func TestMemoryBlobs_PutIdempotentKeepsCreationTime(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlobs()
	t0 := time.Unix(100, 0)
	b.SetClock(func() time.Time { return t0 })
	require.NoError(t, b.Put(ctx, "k", []byte("x")))

	b.SetClock(func() time.Time { return t0.Add(time.Hour) })
	require.NoError(t, b.Put(ctx, "k", []byte("x")))
	blobs, err := b.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, t0, blobs[0].Created)

	require.NoError(t, b.Put(ctx, "k", []byte("y")))
	blobs, err = b.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), blobs[0].Created)
}

func TestMemoryDocs_QueryOrderedScopesAndSorts(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDocs()
	base := time.Unix(1000, 0)
	for i, owner := range []string{"alice", "bob", "alice", "alice"} {
		_, err := d.Insert(ctx, "prescriptions", models.Scan{
			Text:      owner,
			OwnerID:   owner,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recs, err := d.QueryOrdered(ctx, Query{
		Collection: "prescriptions",
		OrderField: "timestamp",
		Direction:  Descending,
		OwnerID:    "alice",
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, base.Add(3*time.Minute), recs[0].Timestamp)
	assert.Equal(t, base, recs[2].Timestamp)

	got, err := d.Get(ctx, "prescriptions", recs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, recs[0], got)

	_, err = d.Get(ctx, "prescriptions", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
