package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FileDriver serves stills from JPEG files on disk, cycling through Paths in
// order. It stands in for a camera when scanning existing photographs.
type FileDriver struct {
	Paths []string
}

// Open implements Driver.
func (d *FileDriver) Open(ctx context.Context, cfg DeviceConfig) (Device, error) {
	if len(d.Paths) == 0 {
		return nil, fmt.Errorf("%w: no image files configured", ErrHardwareUnavailable)
	}
	for _, p := range d.Paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
		}
	}
	return &fileDevice{paths: d.Paths}, nil
}

type fileDevice struct {
	mu    sync.Mutex
	paths []string
	next  int
}

func (d *fileDevice) AttachPreview(sink PreviewSink) error {
	data, err := os.ReadFile(d.paths[0])
	if err != nil {
		return err
	}
	sink.ShowFrame(data)
	return nil
}

func (d *fileDevice) Capture(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	path := d.paths[d.next%len(d.paths)]
	d.next++
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &HardwareError{Code: 1, Err: err}
	}
	return data, nil
}

func (d *fileDevice) HasFlash() bool      { return false }
func (d *fileDevice) SetTorch(bool) error { return nil }
func (d *fileDevice) Close() error        { return nil }
