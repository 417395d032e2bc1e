package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/prescriptionreader/internal/gcp"
	"github.com/Lllllllleong/prescriptionreader/internal/janitor"
	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
)

// JanitorConfig holds configuration for the blob-janitor service.
type JanitorConfig struct {
	ProjectID  string
	ScanBucket string
	Collection string
	Grace      time.Duration
}

// LoadJanitorConfig reads the janitor configuration from the environment.
func LoadJanitorConfig() (JanitorConfig, error) {
	config := JanitorConfig{
		ProjectID:  gcp.GetEnv("PROJECT_ID", ""),
		ScanBucket: gcp.GetEnv("SCAN_BUCKET", ""),
		Collection: gcp.GetEnv("FIRESTORE_COLLECTION", "prescriptions"),
	}
	if config.ProjectID == "" {
		return config, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.ScanBucket == "" {
		return config, fmt.Errorf("SCAN_BUCKET must be set")
	}
	grace, err := time.ParseDuration(gcp.GetEnv("JANITOR_GRACE", janitor.DefaultGrace.String()))
	if err != nil {
		return config, fmt.Errorf("invalid JANITOR_GRACE: %w", err)
	}
	config.Grace = grace
	return config, nil
}

// JanitorFunction holds dependencies for orphan blob reclamation.
type JanitorFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	janitor         *janitor.Janitor
	config          JanitorConfig
}

// NewJanitor creates a new JanitorFunction instance from the environment.
func NewJanitor(ctx context.Context) (*JanitorFunction, error) {
	config, err := LoadJanitorConfig()
	if err != nil {
		return nil, err
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		storageClient.Close()
		return nil, err
	}

	return &JanitorFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		janitor:         newJanitor(store.NewGCSBlobs(storageClient, config.ScanBucket), store.NewFirestoreDocs(firestoreClient), config),
		config:          config,
	}, nil
}

func newJanitor(blobs store.BlobLister, docs store.DocStore, config JanitorConfig) *janitor.Janitor {
	return janitor.New(blobs, docs, janitor.Config{
		Collection: config.Collection,
		KeyPrefix:  pipeline.DefaultConfig().KeyPrefix,
		Grace:      config.Grace,
	})
}

// Process runs one reconciliation pass over the scan bucket.
func (f *JanitorFunction) Process(ctx context.Context) (*models.JanitorReport, error) {
	logCtx := slog.With("bucket", f.config.ScanBucket, "collection", f.config.Collection)
	logCtx.Info("Starting orphan blob reclamation.", "grace", f.config.Grace.String())

	report, err := f.janitor.Run(ctx)
	if err != nil {
		logCtx.Error("Orphan blob reclamation failed", "error", err)
		return nil, err
	}
	logCtx.Info("Orphan blob reclamation complete.", "status", report.Status, "deleted", len(report.Deleted), "failed", report.Failed)
	return report, nil
}

// Close releases the GCP clients.
func (f *JanitorFunction) Close() error {
	fsErr := f.firestoreClient.Close()
	if err := f.storageClient.Close(); err != nil {
		return err
	}
	return fsErr
}
