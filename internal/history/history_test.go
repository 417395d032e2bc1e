package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/session"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrincipals struct {
	id  string
	err error
}

func (s stubPrincipals) Principal() (session.Principal, error) {
	return session.Principal{ID: s.id}, s.err
}

type failingDocs struct {
	store.DocStore
}

func (failingDocs) QueryOrdered(ctx context.Context, q store.Query) ([]models.ScanRecord, error) {
	return nil, errors.New("permission denied")
}

func TestLoad_NewestFirstScopedToOwner(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryDocs()
	t1 := time.Unix(1000, 0)
	t2, t3 := t1.Add(time.Minute), t1.Add(2*time.Minute)
	for _, s := range []models.Scan{
		{Text: "first", Timestamp: t1, OwnerID: "alice"},
		{Text: "third", Timestamp: t3, OwnerID: "alice"},
		{Text: "bob's", Timestamp: t3.Add(time.Hour), OwnerID: "bob"},
		{Text: "second", Timestamp: t2, OwnerID: "alice"},
	} {
		_, err := docs.Insert(ctx, "prescriptions", s)
		require.NoError(t, err)
	}

	r := NewReader(docs, stubPrincipals{id: "alice"}, "prescriptions", time.Second)
	entries, err := r.Load(ctx)
	require.NoError(t, err)

	var texts []string
	for i, e := range entries {
		texts = append(texts, e.Text)
		if i > 0 {
			assert.False(t, e.Timestamp.After(entries[i-1].Timestamp))
		}
	}
	assert.Equal(t, []string{"third", "second", "first"}, texts)
}

func TestLoad_RequiresPrincipal(t *testing.T) {
	r := NewReader(store.NewMemoryDocs(), stubPrincipals{err: session.ErrNotAuthenticated}, "prescriptions", 0)
	_, err := r.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestLoad_QueryFailure(t *testing.T) {
	r := NewReader(failingDocs{}, stubPrincipals{id: "alice"}, "prescriptions", 0)
	entries, err := r.Load(context.Background())
	assert.ErrorIs(t, err, ErrQuery)
	assert.Nil(t, entries)
}
