// Package capture exposes a back-facing camera as a source of still JPEG frames
// with a controllable torch.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single still capture.
const DefaultTimeout = 5 * time.Second

var (
	ErrHardwareUnavailable = errors.New("camera hardware unavailable")
	ErrNotBound            = errors.New("camera not bound")
	ErrTimeout             = errors.New("capture timed out")
)

// HardwareError carries a driver-specific failure code.
type HardwareError struct {
	Code int
	Err  error
}

func (e *HardwareError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("camera hardware error %d", e.Code)
	}
	return fmt.Sprintf("camera hardware error %d: %v", e.Code, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// State is the lifecycle state of a Source.
type State int

const (
	Unbound State = iota
	Binding
	Bound
	Unbinding
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "Unbound"
	case Binding:
		return "Binding"
	case Bound:
		return "Bound"
	case Unbinding:
		return "Unbinding"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CaptureMode trades still quality against shutter latency.
type CaptureMode int

const (
	MinimizeLatency CaptureMode = iota
	MaximizeQuality
)

// DeviceConfig is what a Driver is asked to open.
type DeviceConfig struct {
	BackFacing bool
	Mode       CaptureMode
}

// PreviewSink receives live preview frames while the camera is bound.
type PreviewSink interface {
	ShowFrame(jpeg []byte)
}

// Driver opens camera hardware.
type Driver interface {
	Open(ctx context.Context, cfg DeviceConfig) (Device, error)
}

// Device is an opened camera.
type Device interface {
	AttachPreview(sink PreviewSink) error
	Capture(ctx context.Context) ([]byte, error)
	HasFlash() bool
	SetTorch(on bool) error
	Close() error
}

// Sweeper reclaims orphaned scratch files; it runs every time the camera binds.
type Sweeper interface {
	Sweep() (int, error)
}

// At most one Source may hold camera hardware per process.
var (
	holderMu sync.Mutex
	holder   *Source
)

func acquireHardware(s *Source) bool {
	holderMu.Lock()
	defer holderMu.Unlock()
	if holder != nil && holder != s {
		return false
	}
	holder = s
	return true
}

func releaseHardware(s *Source) {
	holderMu.Lock()
	defer holderMu.Unlock()
	if holder == s {
		holder = nil
	}
}

// Source owns a camera session. All state transitions are serialized on mu.
type Source struct {
	driver  Driver
	timeout time.Duration
	sweeper Sweeper
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	dev   Device
	torch bool
}

// Option configures a Source.
type Option func(*Source)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// WithSweeper registers a sweeper invoked on every bind.
func WithSweeper(sw Sweeper) Option {
	return func(s *Source) { s.sweeper = sw }
}

// NewSource returns an unbound Source backed by driver.
func NewSource(driver Driver, opts ...Option) *Source {
	s := &Source{
		driver:  driver,
		timeout: DefaultTimeout,
		logger:  slog.With("component", "capture"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Bind acquires the back camera and attaches a live preview to sink. Binding an
// already bound Source unbinds it first.
func (s *Source) Bind(ctx context.Context, sink PreviewSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Bound {
		if err := s.unbindLocked(); err != nil {
			s.logger.Warn("Unbind before rebind reported an error.", "error", err)
		}
	}
	if !acquireHardware(s) {
		return fmt.Errorf("%w: held by another camera session", ErrHardwareUnavailable)
	}

	s.state = Binding
	dev, err := s.driver.Open(ctx, DeviceConfig{BackFacing: true, Mode: MinimizeLatency})
	if err != nil {
		s.state = Unbound
		releaseHardware(s)
		if errors.Is(err, ErrHardwareUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
	}
	if sink != nil {
		if err := dev.AttachPreview(sink); err != nil {
			_ = dev.Close()
			s.state = Unbound
			releaseHardware(s)
			return fmt.Errorf("failed to attach preview: %w", err)
		}
	}
	s.dev = dev
	s.torch = false
	s.state = Bound
	s.logger.Info("Camera bound.", "hasFlash", dev.HasFlash())

	if s.sweeper != nil {
		if _, err := s.sweeper.Sweep(); err != nil {
			s.logger.Warn("Stale image sweep failed.", "error", err)
		}
	}
	return nil
}

// CaptureStill returns the next frame as JPEG bytes. The device call runs on its
// own goroutine; the caller waits for it, the capture timeout, or ctx.
func (s *Source) CaptureStill(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.state != Bound {
		s.mu.Unlock()
		return nil, ErrNotBound
	}
	dev := s.dev
	s.mu.Unlock()

	captureCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := dev.Capture(captureCtx)
		done <- result{data, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var hwErr *HardwareError
			if errors.As(r.err, &hwErr) {
				return nil, r.err
			}
			if ctx.Err() == nil && errors.Is(r.err, context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, &HardwareError{Code: -1, Err: r.err}
		}
		return r.data, nil
	case <-captureCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrTimeout
	}
}

// SetTorch sets the torch state. It is a no-op on units without a flash and
// when the torch is already in the requested state.
func (s *Source) SetTorch(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Bound {
		return ErrNotBound
	}
	if !s.dev.HasFlash() || s.torch == on {
		return nil
	}
	if err := s.dev.SetTorch(on); err != nil {
		return &HardwareError{Code: -1, Err: err}
	}
	s.torch = on
	return nil
}

// Torch reports the current torch state.
func (s *Source) Torch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.torch
}

// HasFlash reports whether the bound unit has a flash.
func (s *Source) HasFlash() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Bound && s.dev.HasFlash()
}

// Unbind releases the hardware. Unbinding an unbound Source is a no-op.
func (s *Source) Unbind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unbindLocked()
}

func (s *Source) unbindLocked() error {
	if s.state != Bound {
		return nil
	}
	s.state = Unbinding
	err := s.dev.Close()
	s.dev = nil
	s.torch = false
	s.state = Unbound
	releaseHardware(s)
	s.logger.Info("Camera unbound.")
	if err != nil {
		return fmt.Errorf("failed to release camera: %w", err)
	}
	return nil
}
