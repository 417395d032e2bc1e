// Package history reads a principal's past scans, newest first.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/session"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
)

// ErrQuery tags a failed history load. No partial results accompany it.
var ErrQuery = errors.New("history query failed")

// Entry is one row of scan history.
type Entry struct {
	ScanID    string
	Text      string
	URL       string
	Timestamp time.Time
}

// Principals supplies the authenticated principal.
type Principals interface {
	Principal() (session.Principal, error)
}

// Reader loads scan history from a DocStore.
type Reader struct {
	docs       store.DocStore
	session    Principals
	collection string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewReader returns a Reader over collection. Queries are bounded by timeout.
func NewReader(docs store.DocStore, session Principals, collection string, timeout time.Duration) *Reader {
	return &Reader{
		docs:       docs,
		session:    session,
		collection: collection,
		timeout:    timeout,
		logger:     slog.With("component", "history"),
	}
}

// Load returns the principal's scans ordered by timestamp, newest first.
func (r *Reader) Load(ctx context.Context) ([]Entry, error) {
	principal, err := r.session.Principal()
	if err != nil {
		return nil, err
	}
	logCtx := r.logger.With("ownerId", principal.ID)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	records, err := r.docs.QueryOrdered(ctx, store.Query{
		Collection: r.collection,
		OrderField: "timestamp",
		Direction:  store.Descending,
		OwnerID:    principal.ID,
	})
	if err != nil {
		logCtx.Error("Failed to load scan history", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, Entry{
			ScanID:    rec.ID,
			Text:      rec.Text,
			URL:       rec.ImageURL,
			Timestamp: rec.Timestamp,
		})
	}
	// Stores that paginate may hand back pages out of order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	logCtx.Info("Loaded scan history.", "count", len(entries))
	return entries, nil
}
