// Package ocr turns a staged prescription image into ordered text blocks.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
)

// ErrImageUnreadable is returned for missing, corrupt or unsupported images.
var ErrImageUnreadable = errors.New("image unreadable")

// EngineError wraps a failure inside the OCR engine itself.
type EngineError struct {
	Detail string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return "ocr engine failure: " + e.Detail
	}
	return fmt.Sprintf("ocr engine failure: %s: %v", e.Detail, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Block is one text region in engine output order.
type Block struct {
	Text string
}

// Result is the ordered output of a recognition pass.
type Result struct {
	Blocks []Block
}

// Text returns the canonical recognized text: every block followed by a newline,
// in the order the engine produced them. No blocks yields "".
func (r Result) Text() string {
	var b strings.Builder
	for _, block := range r.Blocks {
		b.WriteString(block.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Recognizer is a long-lived OCR handle. Close releases engine resources.
type Recognizer interface {
	Recognize(ctx context.Context, path string) (Result, error)
	Close() error
}

// CheckImage verifies that path exists and decodes as a supported image,
// returning the format name.
func CheckImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageUnreadable, err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrImageUnreadable, path, err)
	}
	return format, nil
}
