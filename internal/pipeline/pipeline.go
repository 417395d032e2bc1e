// Package pipeline runs a scan end to end: capture a frame, stage it to a
// scratch file, recognize its text, upload the image, resolve its URL and
// insert the scan document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/capture"
	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/Lllllllleong/prescriptionreader/internal/session"
	"github.com/Lllllllleong/prescriptionreader/internal/staging"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
)

// Capturer yields one still frame.
type Capturer interface {
	CaptureStill(ctx context.Context) ([]byte, error)
}

// Stager persists frames to scratch files.
type Stager interface {
	Stage(data []byte) (*staging.Image, error)
	Remove(img *staging.Image) error
}

// Principals supplies the authenticated principal.
type Principals interface {
	Principal() (session.Principal, error)
}

// Config holds the pipeline's collection, key schema and stage timeouts.
type Config struct {
	Collection       string
	KeyPrefix        string
	RecognizeTimeout time.Duration
	RemoteTimeout    time.Duration
}

// DefaultConfig returns the prescriptions collection and key prefix with a 15 s
// recognize timeout and a 30 s bound on each remote call.
func DefaultConfig() Config {
	return Config{
		Collection:       "prescriptions",
		KeyPrefix:        "prescriptions/",
		RecognizeTimeout: 15 * time.Second,
		RemoteTimeout:    30 * time.Second,
	}
}

// Deps are the collaborators a Pipeline drives. All are required.
type Deps struct {
	Capture    Capturer
	Stager     Stager
	Recognizer ocr.Recognizer
	Blobs      store.BlobStore
	Docs       store.DocStore
	Session    Principals
}

func (d Deps) validate() error {
	switch {
	case d.Capture == nil:
		return errors.New("pipeline: capture source is required")
	case d.Stager == nil:
		return errors.New("pipeline: stager is required")
	case d.Recognizer == nil:
		return errors.New("pipeline: recognizer is required")
	case d.Blobs == nil:
		return errors.New("pipeline: blob store is required")
	case d.Docs == nil:
		return errors.New("pipeline: doc store is required")
	case d.Session == nil:
		return errors.New("pipeline: session is required")
	}
	return nil
}

// Pipeline runs at most one scan at a time and reports every outcome to its sink.
type Pipeline struct {
	deps   Deps
	cfg    Config
	sink   Sink
	now    func() time.Time
	logger *slog.Logger

	inFlight atomic.Bool

	// lifetime is cancelled by Close; it bounds every scan.
	lifetime context.Context
	cancel   context.CancelFunc

	tsMu   sync.Mutex
	lastTS time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock injects the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a Pipeline. A nil sink discards outcomes.
func New(deps Deps, sink Sink, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = SinkFunc(func(Outcome) {})
	}
	lifetime, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		deps:     deps,
		cfg:      cfg,
		sink:     sink,
		now:      time.Now,
		logger:   slog.With("component", "pipeline"),
		lifetime: lifetime,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close cancels any in-flight scan at its next suspension point. Later runs fail.
func (p *Pipeline) Close() {
	p.cancel()
}

// Busy reports whether a scan is in flight.
func (p *Pipeline) Busy() bool { return p.inFlight.Load() }

// Run performs one scan and returns its terminal outcome. A Recognized outcome
// is emitted to the sink before persistence begins; the terminal outcome is
// emitted too.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	if !p.inFlight.CompareAndSwap(false, true) {
		return p.emit(Failed{Stage: StageCapture, Err: ErrBusy})
	}
	defer p.inFlight.Store(false)

	if err := p.lifetime.Err(); err != nil {
		return p.emit(Failed{Stage: StageCapture, Err: err})
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.lifetime, cancel)
	defer stop()

	principal, err := p.deps.Session.Principal()
	if err != nil {
		return p.emit(Failed{Stage: StageCapture, Err: err})
	}

	r := &scanRun{p: p, owner: principal.ID, logger: p.logger.With("ownerId", principal.ID)}
	return p.emit(r.execute(ctx))
}

func (p *Pipeline) emit(o Outcome) Outcome {
	p.sink.Emit(o)
	return o
}

// stamp returns the persistence timestamp, never earlier than the previous one.
func (p *Pipeline) stamp() time.Time {
	p.tsMu.Lock()
	defer p.tsMu.Unlock()
	t := p.now()
	if t.Before(p.lastTS) {
		t = p.lastTS
	}
	p.lastTS = t
	return t
}

// scanRun carries the state of one scan between suspension points.
type scanRun struct {
	p      *Pipeline
	owner  string
	logger *slog.Logger

	img  *staging.Image
	key  string
	text string
	url  string
}

func (r *scanRun) execute(ctx context.Context) Outcome {
	deps, cfg := r.p.deps, r.p.cfg

	// 1. Capture
	if err := ctx.Err(); err != nil {
		return Failed{Stage: StageCapture, Err: err}
	}
	frame, err := deps.Capture.CaptureStill(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		r.logger.Warn("Capture failed.", "error", err)
		return Failed{Stage: StageCapture, Err: err}
	}

	// 2. Stage
	r.img, err = deps.Stager.Stage(frame)
	if err != nil {
		r.logger.Error("Failed to stage captured image", "error", err)
		return Failed{Stage: StageStage, Err: err}
	}
	defer r.cleanup()
	r.key = cfg.KeyPrefix + r.img.Name()
	r.logger = r.logger.With("imageKey", r.key)

	// 3. Recognize
	if err := ctx.Err(); err != nil {
		return Failed{Stage: StageRecognize, Err: err}
	}
	var res ocr.Result
	err = r.bounded(ctx, cfg.RecognizeTimeout, func(ctx context.Context) error {
		var err error
		res, err = deps.Recognizer.Recognize(ctx, r.img.Path)
		return err
	})
	if err != nil {
		r.logger.Warn("Text recognition failed.", "error", err)
		return Failed{Stage: StageRecognize, Err: err}
	}
	r.text = res.Text()
	r.p.emit(Recognized{Text: r.text})
	r.logger.Info("Text recognized.", "blocks", len(res.Blocks))

	// 4. UploadBlob
	if err := ctx.Err(); err != nil {
		return Failed{Stage: StageUploadBlob, Err: err}
	}
	data, err := r.img.ReadVerified()
	if err != nil {
		return Failed{Stage: StageUploadBlob, Err: err}
	}
	err = r.bounded(ctx, cfg.RemoteTimeout, func(ctx context.Context) error {
		return deps.Blobs.Put(ctx, r.key, data)
	})
	if err != nil {
		r.logger.Error("Failed to upload image", "error", err)
		return Failed{Stage: StageUploadBlob, Err: err}
	}
	if _, err := r.img.ReadVerified(); err != nil {
		r.logger.Error("Staged image changed during upload", "error", err)
		return Failed{Stage: StageUploadBlob, Err: err}
	}

	// 5. ResolveUrl
	if err := ctx.Err(); err != nil {
		return Failed{Stage: StageResolveURL, Err: err}
	}
	err = r.bounded(ctx, cfg.RemoteTimeout, func(ctx context.Context) error {
		var err error
		r.url, err = deps.Blobs.URLFor(ctx, r.key)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to resolve image URL", "error", err)
		return Failed{Stage: StageResolveURL, Err: err}
	}

	// 6. InsertDoc
	if err := ctx.Err(); err != nil {
		return Failed{Stage: StageInsertDoc, Err: err}
	}
	doc := models.Scan{
		Text:      r.text,
		ImageURL:  r.url,
		ImageKey:  r.key,
		Timestamp: r.p.stamp(),
		OwnerID:   r.owner,
	}
	var scanID string
	err = r.bounded(ctx, cfg.RemoteTimeout, func(ctx context.Context) error {
		var err error
		scanID, err = deps.Docs.Insert(ctx, cfg.Collection, doc)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to insert scan document", "error", err)
		return Failed{Stage: StageInsertDoc, Err: err}
	}

	r.logger.Info("Scan persisted.", "scanId", scanID)
	return Persisted{
		ScanID:    scanID,
		Text:      r.text,
		URL:       r.url,
		ImageKey:  r.key,
		OwnerID:   r.owner,
		Timestamp: doc.Timestamp,
	}
}

// bounded runs fn under a stage deadline and tags deadline overruns with ErrTimeout.
// Cancellation of ctx itself is reported as-is.
func (r *scanRun) bounded(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(stageCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func (r *scanRun) cleanup() {
	if err := r.p.deps.Stager.Remove(r.img); err != nil {
		r.logger.Warn("Failed to delete staged image.", "error", err)
	}
}
