package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/prescriptionreader/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	janitorInstance *services.JanitorFunction
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Cloud Scheduler publishes to a Pub/Sub topic that triggers this function.
	functions.CloudEvent("ReclaimOrphanBlobs", reclaimOrphanBlobs)
}

// main is required by the Go Functions Framework.
func main() {}

// reclaimOrphanBlobs is the Cloud Function entry point. The event payload is
// ignored; every trigger runs one full pass.
func reclaimOrphanBlobs(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		janitorInstance, initErr = services.NewJanitor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	slog.Info("Received janitor trigger.", "eventId", e.ID(), "source", e.Source())
	report, err := janitorInstance.Process(ctx)
	if err != nil {
		// Already logged with context inside Process.
		return err
	}
	if report.Failed > 0 {
		slog.Warn("Some orphan blobs could not be deleted; they will be retried on the next run.", "failed", report.Failed)
	}
	return nil
}
