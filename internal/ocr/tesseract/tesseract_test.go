package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestEngine_BlankImageYieldsNoBlocks(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "blank.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	res, err := e.Recognize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "", res.Text())
}

func TestEngine_UnreadableImage(t *testing.T) {
	ensureTesseractAvailable(t)

	e, err := New()
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ocr.ErrImageUnreadable)
}
