// Package janitor reclaims image blobs that no scan document references, which
// is what a scan leaves behind when it fails after upload.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
	"golang.org/x/sync/errgroup"
)

// DefaultGrace is how old an unreferenced blob must be before it is deleted.
const DefaultGrace = 24 * time.Hour

// Config selects what the janitor inspects.
type Config struct {
	Collection  string
	KeyPrefix   string
	Grace       time.Duration
	Concurrency int
}

// Janitor deletes orphaned blobs.
type Janitor struct {
	blobs  store.BlobLister
	docs   store.DocStore
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func New(blobs store.BlobLister, docs store.DocStore, cfg Config) *Janitor {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &Janitor{
		blobs:  blobs,
		docs:   docs,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.With("component", "janitor"),
	}
}

// Run performs one reconciliation pass. Individual delete failures are
// counted in the report rather than aborting the pass.
func (j *Janitor) Run(ctx context.Context) (*models.JanitorReport, error) {
	logCtx := j.logger.With("collection", j.cfg.Collection, "prefix", j.cfg.KeyPrefix)

	// List blobs before reading documents: a scan that inserts its document
	// in between is then seen as referenced.
	blobs, err := j.blobs.List(ctx, j.cfg.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	records, err := j.docs.QueryOrdered(ctx, store.Query{
		Collection: j.cfg.Collection,
		OrderField: "timestamp",
		Direction:  store.Ascending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load scan documents: %w", err)
	}

	referenced := make(map[string]struct{}, len(records))
	for _, rec := range records {
		referenced[rec.ImageKey] = struct{}{}
	}

	cutoff := j.now().Add(-j.cfg.Grace)
	report := &models.JanitorReport{Status: "success", Scanned: len(blobs)}
	var mu sync.Mutex

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(j.cfg.Concurrency)
	for _, b := range blobs {
		if _, ok := referenced[b.Key]; ok {
			report.Referenced++
			continue
		}
		if b.Created.After(cutoff) {
			continue
		}
		key := b.Key
		eg.Go(func() error {
			if err := j.blobs.Delete(gctx, key); err != nil {
				logCtx.Warn("Failed to delete orphaned blob.", "key", key, "error", err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.Deleted = append(report.Deleted, key)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(report.Deleted)
	if report.Failed > 0 {
		report.Status = "partial"
	}
	logCtx.Info("Janitor pass complete.", "scanned", report.Scanned, "referenced", report.Referenced, "deleted", len(report.Deleted), "failed", report.Failed)
	return report, nil
}
