// Package tesseract provides the on-device OCR engine backed by Tesseract.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Engine implements ocr.Recognizer with a single reusable gosseract client.
// The client is not safe for concurrent use, so recognitions are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

// New constructs a Tesseract-backed recognizer for the given
// languages ("eng" when none are given).
func New(languages ...string) (*Engine, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	c := gosseract.NewClient()
	if err := c.SetLanguage(languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	return &Engine{
		client: c,
		logger: slog.With("component", "ocr", "engine", "tesseract"),
	}, nil
}

// Recognize runs OCR on the image at path and returns its text blocks.
func (e *Engine) Recognize(ctx context.Context, path string) (ocr.Result, error) {
	if _, err := ocr.CheckImage(path); err != nil {
		return ocr.Result{}, err
	}

	type outcome struct {
		res ocr.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.recognize(path)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	}
}

func (e *Engine) recognize(path string) (ocr.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImage(path); err != nil {
		return ocr.Result{}, &ocr.EngineError{Detail: "set image", Err: err}
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return ocr.Result{}, &ocr.EngineError{Detail: "block layout", Err: err}
	}

	blocks := make([]ocr.Block, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		blocks = append(blocks, ocr.Block{Text: text})
	}
	e.logger.Debug("Recognition complete.", "path", path, "blocks", len(blocks))
	return ocr.Result{Blocks: blocks}, nil
}

// Close releases the underlying Tesseract handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
