package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lllllllleong/prescriptionreader/internal/capture"
	"github.com/Lllllllleong/prescriptionreader/internal/history"
	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/Lllllllleong/prescriptionreader/internal/session"
	"github.com/Lllllllleong/prescriptionreader/internal/store"
)

// ErrPermissionDenied is returned when the camera permission is missing.
var ErrPermissionDenied = errors.New("camera permission not granted")

const (
	FlashOnLabel  = "Flash On"
	FlashOffLabel = "Flash Off"
)

// ScanDeps are the resources a ScanScreen owns for its lifetime.
type ScanDeps struct {
	Camera      *capture.Source
	Stager      pipeline.Stager
	Recognizer  ocr.Recognizer
	Blobs       store.BlobStore
	Docs        store.DocStore
	Session     *session.Gate
	Config      pipeline.Config
	Preview     capture.PreviewSink
	Permissions Permissions
	// Sinks receive every outcome after the screen has handled it.
	Sinks []pipeline.Sink
}

// ScanScreen is the capture surface: preview, Capture and Flash buttons, the
// recognized text display and the History button.
type ScanScreen struct {
	camera     *capture.Source
	recognizer ocr.Recognizer
	pipeline   *pipeline.Pipeline
	history    *history.Reader
	nav        Navigator
	toast      Notifier
	logger     *slog.Logger

	mu   sync.Mutex
	text string
}

// OpenScanScreen enters the scan surface: it checks the session and camera
// permission, binds the camera and builds the pipeline. The screen owns the
// camera and recognizer from here on; Close releases them.
func OpenScanScreen(ctx context.Context, deps ScanDeps, nav Navigator, toast Notifier) (*ScanScreen, error) {
	if _, err := deps.Session.Principal(); err != nil {
		nav.Navigate(RouteSignIn)
		return nil, err
	}
	if deps.Permissions != nil && !deps.Permissions.CameraGranted() {
		toast.Toast("Permissions not granted by the user.")
		nav.Navigate(RouteBack)
		return nil, ErrPermissionDenied
	}

	s := &ScanScreen{
		camera:     deps.Camera,
		recognizer: deps.Recognizer,
		history:    history.NewReader(deps.Docs, deps.Session, deps.Config.Collection, deps.Config.RemoteTimeout),
		nav:        nav,
		toast:      toast,
		logger:     slog.With("component", "scan-screen"),
	}

	sinks := append(pipeline.MultiSink{s}, deps.Sinks...)
	p, err := pipeline.New(pipeline.Deps{
		Capture:    deps.Camera,
		Stager:     deps.Stager,
		Recognizer: deps.Recognizer,
		Blobs:      deps.Blobs,
		Docs:       deps.Docs,
		Session:    deps.Session,
	}, sinks, deps.Config)
	if err != nil {
		return nil, err
	}
	s.pipeline = p

	if err := deps.Camera.Bind(ctx, deps.Preview); err != nil {
		toast.Toast("Error binding camera: " + err.Error())
		return s, err
	}
	return s, nil
}

// Capture runs one scan. Outcomes reach the display through Emit.
func (s *ScanScreen) Capture(ctx context.Context) pipeline.Outcome {
	return s.pipeline.Run(ctx)
}

// Busy reports whether a scan is in flight.
func (s *ScanScreen) Busy() bool {
	return s.pipeline.Busy()
}

// Emit implements pipeline.Sink.
func (s *ScanScreen) Emit(o pipeline.Outcome) {
	switch o := o.(type) {
	case pipeline.Recognized:
		s.setText(o.Text)
	case pipeline.Persisted:
		s.setText(o.Text)
	case pipeline.Failed:
		s.toast.Toast(failureMessage(o))
	}
}

// Text returns the recognized text currently displayed.
func (s *ScanScreen) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *ScanScreen) setText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

// FlashLabel is the Flash button label: the action a press would take.
func (s *ScanScreen) FlashLabel() string {
	if s.camera.Torch() {
		return FlashOffLabel
	}
	return FlashOnLabel
}

// ToggleFlash flips the torch. Units without a flash ignore it.
func (s *ScanScreen) ToggleFlash() error {
	if !s.camera.HasFlash() {
		return nil
	}
	if err := s.camera.SetTorch(!s.camera.Torch()); err != nil {
		s.toast.Toast("Error toggling flash: " + err.Error())
		return err
	}
	return nil
}

// OpenHistory loads the principal's history into a dialog.
func (s *ScanScreen) OpenHistory(ctx context.Context) (*HistoryDialog, error) {
	entries, err := s.history.Load(ctx)
	if err != nil {
		s.toast.Toast("Failed to load history: " + err.Error())
		return nil, err
	}
	return &HistoryDialog{Entries: entries}, nil
}

// Close tears the screen down: it cancels any in-flight scan and releases the
// camera and recognizer. Release warnings are logged, not returned.
func (s *ScanScreen) Close() {
	if s.pipeline != nil {
		s.pipeline.Close()
	}
	if err := s.camera.Unbind(); err != nil {
		s.logger.Warn("Camera unbind reported an error during teardown.", "error", err)
	}
	if err := s.recognizer.Close(); err != nil {
		s.logger.Warn("Recognizer close reported an error during teardown.", "error", err)
	}
}

func failureMessage(f pipeline.Failed) string {
	if errors.Is(f.Err, pipeline.ErrBusy) {
		return "Scan already in progress"
	}
	switch f.Stage {
	case pipeline.StageCapture:
		return fmt.Sprintf("Error capturing image: %v", f.Err)
	case pipeline.StageStage:
		return fmt.Sprintf("Error processing image: %v", f.Err)
	case pipeline.StageRecognize:
		return fmt.Sprintf("Text recognition failed: %v", f.Err)
	default:
		return fmt.Sprintf("Failed to save scan: %v", f.Err)
	}
}
