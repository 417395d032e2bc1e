// Package staging owns the scratch files that hold a captured frame between
// capture and persistence.
package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "Prescription_"
	fileExt    = ".jpg"

	// DefaultStaleAfter is the age past which an orphaned scratch file is swept.
	DefaultStaleAfter = time.Hour
)

// Image is a captured frame persisted to the scratch area.
type Image struct {
	Path      string
	CreatedAt time.Time
	// SHA256 is the hex digest of the bytes written at staging time.
	SHA256 string
}

// Name returns the basename of the staged file.
func (img *Image) Name() string { return filepath.Base(img.Path) }

// ReadVerified reads the staged bytes back and checks them against the digest
// recorded at staging time.
func (img *Image) ReadVerified() ([]byte, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged image %s: %w", img.Path, err)
	}
	if got := digest(data); got != img.SHA256 {
		return nil, fmt.Errorf("%w: %s (want %s, got %s)", ErrModified, img.Name(), img.SHA256, got)
	}
	return data, nil
}

// ErrModified is returned when a staged file no longer matches the bytes that were captured.
var ErrModified = errors.New("staged image modified after capture")

// Stager creates uniquely named scratch files under a single cache directory.
type Stager struct {
	dir        string
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu         sync.Mutex
	lastMillis int64
	counter    uint64
}

// Option configures a Stager.
type Option func(*Stager)

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Stager) { s.staleAfter = d }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Stager) { s.now = now }
}

// New creates the cache directory if needed and returns a Stager rooted there.
func New(dir string, opts ...Option) (*Stager, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}
	s := &Stager{
		dir:        dir,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		logger:     slog.With("component", "staging"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the cache directory.
func (s *Stager) Dir() string { return s.dir }

// Stage writes data to a new scratch file named Prescription_<epochMillis>.jpg.
// A second file within the same millisecond gets a -<counter> suffix.
func (s *Stager) Stage(data []byte) (*Image, error) {
	createdAt := s.now()
	for {
		name := s.nextName(createdAt)
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			// A file from an earlier process run holds this name; advance the counter.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create staged file %s: %w", path, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("failed to write staged file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("failed to close staged file %s: %w", path, err)
		}
		return &Image{Path: path, CreatedAt: createdAt, SHA256: digest(data)}, nil
	}
}

func (s *Stager) nextName(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	millis := t.UnixMilli()
	if millis != s.lastMillis {
		s.lastMillis = millis
		s.counter = 0
		return fmt.Sprintf("%s%d%s", filePrefix, millis, fileExt)
	}
	s.counter++
	return fmt.Sprintf("%s%d-%d%s", filePrefix, millis, s.counter, fileExt)
}

// Remove deletes a staged file. A file that is already gone is not an error.
func (s *Stager) Remove(img *Image) error {
	if img == nil {
		return nil
	}
	if err := os.Remove(img.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove staged file %s: %w", img.Path, err)
	}
	return nil
}

// Sweep deletes scratch files older than the stale threshold and returns how
// many were removed.
func (s *Stager) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list staging directory %s: %w", s.dir, err)
	}
	cutoff := s.now().Add(-s.staleAfter)
	removed := 0
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Swept stale staged images.", "removed", removed, "dir", s.dir)
	}
	return removed, errors.Join(errs...)
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
