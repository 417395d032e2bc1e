package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/prescriptionreader/internal/capture"
	"github.com/Lllllllleong/prescriptionreader/internal/events"
	"github.com/Lllllllleong/prescriptionreader/internal/gcp"
	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/Lllllllleong/prescriptionreader/internal/session"
	"github.com/Lllllllleong/prescriptionreader/internal/staging"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
	"github.com/Lllllllleong/prescriptionreader/internal/surface"
	"golang.org/x/crypto/bcrypt"
)

const (
	EngineTesseract = "tesseract"
	EngineVertex    = "vertex"
)

// ScannerConfig holds configuration for the scan service.
type ScannerConfig struct {
	ProjectID      string
	ScanBucket     string
	Collection     string
	IdentityAPIKey string
	OCREngine      string
	OCRLanguages   []string
	VertexAIRegion string
	CacheDir       string
	EventsTopic    string
}

// LoadScannerConfig reads the scanner configuration from the environment.
// Local mode needs neither a project nor a bucket.
func LoadScannerConfig(local bool) (ScannerConfig, error) {
	config := ScannerConfig{
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		ScanBucket:     gcp.GetEnv("SCAN_BUCKET", ""),
		Collection:     gcp.GetEnv("FIRESTORE_COLLECTION", "prescriptions"),
		IdentityAPIKey: gcp.GetEnv("IDENTITY_API_KEY", ""),
		OCREngine:      gcp.GetEnv("OCR_ENGINE", EngineTesseract),
		OCRLanguages:   parseLanguages(gcp.GetEnv("OCR_LANGUAGES", "")),
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		CacheDir:       gcp.GetEnv("SCAN_CACHE_DIR", ""),
		EventsTopic:    gcp.GetEnv("SCAN_EVENTS_TOPIC", ""),
	}
	if config.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		config.CacheDir = filepath.Join(base, "prescriptionreader")
	}
	if config.OCREngine != EngineTesseract && config.OCREngine != EngineVertex {
		return config, fmt.Errorf("OCR_ENGINE must be %q or %q, got %q", EngineTesseract, EngineVertex, config.OCREngine)
	}
	if local {
		if config.OCREngine == EngineVertex && config.ProjectID == "" {
			return config, fmt.Errorf("PROJECT_ID must be set for the vertex OCR engine")
		}
		return config, nil
	}
	if config.ProjectID == "" {
		return config, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.ScanBucket == "" {
		return config, fmt.Errorf("SCAN_BUCKET must be set")
	}
	if config.IdentityAPIKey == "" {
		return config, fmt.Errorf("IDENTITY_API_KEY must be set")
	}
	return config, nil
}

// parseLanguages splits a Tesseract "eng+fra" list, dropping empty entries.
// An empty list falls back to eng.
func parseLanguages(raw string) []string {
	var langs []string
	for _, lang := range strings.Split(raw, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return []string{"eng"}
	}
	return langs
}

// ScannerFunction holds the clients and stores a scan session runs against.
type ScannerFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	pubsubClient    *pubsub.Client
	topic           *pubsub.Topic

	Session *session.Gate
	Blobs   store.BlobStore
	Docs    store.DocStore
	Stager  *staging.Stager
	sinks   []pipeline.Sink
	config  ScannerConfig
}

// NewScanner wires the GCP-backed stores and identity provider.
func NewScanner(ctx context.Context, config ScannerConfig) (*ScannerFunction, error) {
	stager, err := staging.New(config.CacheDir)
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
	identity, err := gcp.NewIdentityToolkitService(ctx, config.IdentityAPIKey)
	if err != nil {
		storageClient.Close()
		firestoreClient.Close()
		return nil, err
	}

	f := &ScannerFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		Session:         session.NewGate(session.NewIdentityToolkitProvider(identity)),
		Blobs:           store.NewGCSBlobs(storageClient, config.ScanBucket),
		Docs:            store.NewFirestoreDocs(firestoreClient),
		Stager:          stager,
		config:          config,
	}

	if config.EventsTopic != "" {
		pubsubClient, err := pubsub.NewClient(ctx, config.ProjectID)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		f.pubsubClient = pubsubClient
		f.topic = pubsubClient.Topic(config.EventsTopic)
		f.sinks = append(f.sinks, events.NewPubSubSink(events.NewTopicPublisher(f.topic)))
	}

	slog.Info("Scanner initialized.", "bucket", config.ScanBucket, "collection", config.Collection, "ocrEngine", config.OCREngine)
	return f, nil
}

// NewLocalScanner wires in-process stores and a bcrypt identity provider.
// Nothing it stores outlives the process.
func NewLocalScanner(config ScannerConfig) (*ScannerFunction, error) {
	stager, err := staging.New(config.CacheDir)
	if err != nil {
		return nil, err
	}
	slog.Info("Scanner initialized in local mode.", "cacheDir", config.CacheDir, "ocrEngine", config.OCREngine)
	return &ScannerFunction{
		Session: session.NewGate(session.NewMemoryProvider(bcrypt.DefaultCost)),
		Blobs:   store.NewMemoryBlobs(),
		Docs:    store.NewMemoryDocs(),
		Stager:  stager,
		config:  config,
	}, nil
}

// Config returns the configuration the scanner was built with.
func (f *ScannerFunction) Config() ScannerConfig { return f.config }

// NewVertexRecognizer builds the Vertex AI OCR engine. The caller owns the result.
func (f *ScannerFunction) NewVertexRecognizer(ctx context.Context) (ocr.Recognizer, error) {
	client, err := gcp.NewVertexClient(ctx, f.config.ProjectID, f.config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return ocr.NewVertexEngine(client), nil
}

// ScanDeps assembles everything a scan screen needs around driver and
// recognizer. The camera sweeps the staging directory on every bind.
func (f *ScannerFunction) ScanDeps(driver capture.Driver, recognizer ocr.Recognizer, timeout time.Duration) surface.ScanDeps {
	cfg := pipeline.DefaultConfig()
	cfg.Collection = f.config.Collection
	return surface.ScanDeps{
		Camera:     capture.NewSource(driver, capture.WithTimeout(timeout), capture.WithSweeper(f.Stager)),
		Stager:     f.Stager,
		Recognizer: recognizer,
		Blobs:      f.Blobs,
		Docs:       f.Docs,
		Session:    f.Session,
		Config:     cfg,
		Sinks:      f.sinks,
	}
}

// Close releases the GCP clients. Local scanners hold none.
func (f *ScannerFunction) Close() error {
	if f.topic != nil {
		f.topic.Stop()
	}
	var errs []error
	if f.pubsubClient != nil {
		errs = append(errs, f.pubsubClient.Close())
	}
	if f.firestoreClient != nil {
		errs = append(errs, f.firestoreClient.Close())
	}
	if f.storageClient != nil {
		errs = append(errs, f.storageClient.Close())
	}
	return errors.Join(errs...)
}
