package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct {
	flash      bool
	torchCalls []bool
	frame      []byte
	block      bool
	captureErr error
	closed     int
}

func (d *stubDevice) AttachPreview(sink PreviewSink) error { return nil }

func (d *stubDevice) Capture(ctx context.Context) ([]byte, error) {
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return d.frame, d.captureErr
}

func (d *stubDevice) HasFlash() bool { return d.flash }

func (d *stubDevice) SetTorch(on bool) error {
	d.torchCalls = append(d.torchCalls, on)
	return nil
}

func (d *stubDevice) Close() error {
	d.closed++
	return nil
}

type stubDriver struct {
	dev     *stubDevice
	opened  int
	openErr error
}

func (d *stubDriver) Open(ctx context.Context, cfg DeviceConfig) (Device, error) {
	d.opened++
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.dev, nil
}

type countingSweeper struct{ calls int }

func (s *countingSweeper) Sweep() (int, error) {
	s.calls++
	return 0, nil
}

func bound(t *testing.T, dev *stubDevice, opts ...Option) (*Source, *stubDriver) {
	t.Helper()
	drv := &stubDriver{dev: dev}
	src := NewSource(drv, opts...)
	require.NoError(t, src.Bind(context.Background(), nil))
	t.Cleanup(func() { _ = src.Unbind() })
	return src, drv
}

func TestCaptureStill_RequiresBound(t *testing.T) {
	src := NewSource(&stubDriver{dev: &stubDevice{}})
	_, err := src.CaptureStill(context.Background())
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestCaptureStill_ReturnsFrame(t *testing.T) {
	src, _ := bound(t, &stubDevice{frame: []byte{0xFF, 0xD8}})
	data, err := src.CaptureStill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data)
}

func TestCaptureStill_Timeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultTimeout)

	src, _ := bound(t, &stubDevice{block: true}, WithTimeout(20*time.Millisecond))
	_, err := src.CaptureStill(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCaptureStill_CallerCancellationIsNotTimeout(t *testing.T) {
	src, _ := bound(t, &stubDevice{block: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.CaptureStill(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestCaptureStill_WrapsDeviceErrors(t *testing.T) {
	src, _ := bound(t, &stubDevice{captureErr: errors.New("sensor fault")})
	_, err := src.CaptureStill(context.Background())
	var hw *HardwareError
	require.ErrorAs(t, err, &hw)
	assert.Equal(t, -1, hw.Code)
}

func TestBind_Twice_UnbindsFirst(t *testing.T) {
	dev := &stubDevice{}
	sweeper := &countingSweeper{}
	src, drv := bound(t, dev, WithSweeper(sweeper))

	require.NoError(t, src.Bind(context.Background(), nil))
	assert.Equal(t, 2, drv.opened)
	assert.Equal(t, 1, dev.closed)
	assert.Equal(t, Bound, src.State())
	assert.Equal(t, 2, sweeper.calls)
}

func TestBind_HardwareUnavailable(t *testing.T) {
	src := NewSource(&stubDriver{openErr: errors.New("no back camera")})
	err := src.Bind(context.Background(), nil)
	assert.ErrorIs(t, err, ErrHardwareUnavailable)
	assert.Equal(t, Unbound, src.State())
}

func TestBind_OneSessionPerProcess(t *testing.T) {
	bound(t, &stubDevice{})

	other := NewSource(&stubDriver{dev: &stubDevice{}})
	err := other.Bind(context.Background(), nil)
	assert.ErrorIs(t, err, ErrHardwareUnavailable)
}

func TestSetTorch_Idempotent(t *testing.T) {
	dev := &stubDevice{flash: true}
	src, _ := bound(t, dev)
	assert.False(t, src.Torch())

	require.NoError(t, src.SetTorch(true))
	require.NoError(t, src.SetTorch(true))
	assert.True(t, src.Torch())
	assert.Equal(t, []bool{true}, dev.torchCalls)
}

func TestSetTorch_NoFlashIsNoop(t *testing.T) {
	dev := &stubDevice{}
	src, _ := bound(t, dev)
	require.NoError(t, src.SetTorch(true))
	assert.False(t, src.Torch())
	assert.Empty(t, dev.torchCalls)
}

func TestUnbind_ResetsTorchAndReleasesHardware(t *testing.T) {
	dev := &stubDevice{flash: true}
	src, _ := bound(t, dev)
	require.NoError(t, src.SetTorch(true))

	require.NoError(t, src.Unbind())
	assert.Equal(t, Unbound, src.State())
	assert.False(t, src.Torch())

	other := NewSource(&stubDriver{dev: &stubDevice{}})
	require.NoError(t, other.Bind(context.Background(), nil))
	require.NoError(t, other.Unbind())
}

func TestFileDriver_CyclesFrames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(a, []byte("A"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("B"), 0o600))

	src := NewSource(&FileDriver{Paths: []string{a, b}})
	require.NoError(t, src.Bind(context.Background(), nil))
	defer src.Unbind()

	var got []string
	for i := 0; i < 3; i++ {
		data, err := src.CaptureStill(context.Background())
		require.NoError(t, err)
		got = append(got, string(data))
	}
	assert.Equal(t, []string{"A", "B", "A"}, got)
	assert.False(t, src.HasFlash())
}

func TestFileDriver_MissingFile(t *testing.T) {
	src := NewSource(&FileDriver{Paths: []string{filepath.Join(t.TempDir(), "missing.jpg")}})
	assert.ErrorIs(t, src.Bind(context.Background(), nil), ErrHardwareUnavailable)
}
