package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/capture"
	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/Lllllllleong/prescriptionreader/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearScannerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PROJECT_ID", "SCAN_BUCKET", "FIRESTORE_COLLECTION", "IDENTITY_API_KEY",
		"OCR_ENGINE", "OCR_LANGUAGES", "VERTEX_AI_REGION", "SCAN_CACHE_DIR",
		"SCAN_EVENTS_TOPIC", "JANITOR_GRACE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadScannerConfig_Defaults(t *testing.T) {
	clearScannerEnv(t)
	dir := t.TempDir()
	t.Setenv("SCAN_CACHE_DIR", dir)

	config, err := LoadScannerConfig(true)
	require.NoError(t, err)
	assert.Equal(t, "prescriptions", config.Collection)
	assert.Equal(t, EngineTesseract, config.OCREngine)
	assert.Equal(t, []string{"eng"}, config.OCRLanguages)
	assert.Equal(t, "us-central1", config.VertexAIRegion)
	assert.Equal(t, dir, config.CacheDir)
}

func TestLoadScannerConfig_RemoteModeRequiresProject(t *testing.T) {
	clearScannerEnv(t)
	_, err := LoadScannerConfig(false)
	assert.ErrorContains(t, err, "PROJECT_ID")

	t.Setenv("PROJECT_ID", "rx-project")
	_, err = LoadScannerConfig(false)
	assert.ErrorContains(t, err, "SCAN_BUCKET")

	t.Setenv("SCAN_BUCKET", "rx-scans")
	_, err = LoadScannerConfig(false)
	assert.ErrorContains(t, err, "IDENTITY_API_KEY")

	t.Setenv("IDENTITY_API_KEY", "key")
	_, err = LoadScannerConfig(false)
	assert.NoError(t, err)
}

func TestLoadScannerConfig_RejectsUnknownEngine(t *testing.T) {
	clearScannerEnv(t)
	t.Setenv("OCR_ENGINE", "abbyy")
	_, err := LoadScannerConfig(true)
	assert.ErrorContains(t, err, "OCR_ENGINE")
}

func TestLoadScannerConfig_LanguageList(t *testing.T) {
	clearScannerEnv(t)
	t.Setenv("OCR_LANGUAGES", "eng+fra")
	config, err := LoadScannerConfig(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"eng", "fra"}, config.OCRLanguages)
}

func TestLoadScannerConfig_EmptyLanguagesFallBackToEnglish(t *testing.T) {
	for _, raw := range []string{"", "+", " + "} {
		clearScannerEnv(t)
		t.Setenv("OCR_LANGUAGES", raw)
		config, err := LoadScannerConfig(true)
		require.NoError(t, err)
		assert.Equal(t, []string{"eng"}, config.OCRLanguages, "OCR_LANGUAGES=%q", raw)
	}
}

func TestLoadJanitorConfig(t *testing.T) {
	clearScannerEnv(t)
	t.Setenv("PROJECT_ID", "rx-project")
	t.Setenv("SCAN_BUCKET", "rx-scans")

	config, err := LoadJanitorConfig()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, config.Grace)

	t.Setenv("JANITOR_GRACE", "soon")
	_, err = LoadJanitorConfig()
	assert.ErrorContains(t, err, "JANITOR_GRACE")
}

type fixedRecognizer struct{}

func (fixedRecognizer) Recognize(ctx context.Context, path string) (ocr.Result, error) {
	return ocr.Result{Blocks: []ocr.Block{{Text: "Amoxicillin 500mg"}}}, nil
}

func (fixedRecognizer) Close() error { return nil }

type silentUI struct{}

func (silentUI) Navigate(surface.Route) {}
func (silentUI) Toast(string)           {}

func TestLocalScanner_ScansFromFile(t *testing.T) {
	clearScannerEnv(t)
	t.Setenv("SCAN_CACHE_DIR", t.TempDir())
	config, err := LoadScannerConfig(true)
	require.NoError(t, err)

	scanner, err := NewLocalScanner(config)
	require.NoError(t, err)
	defer scanner.Close()

	ctx := context.Background()
	_, err = scanner.Session.Register(ctx, "alice@example.com", "hunter2", "hunter2")
	require.NoError(t, err)

	frame := filepath.Join(t.TempDir(), "rx.jpg")
	require.NoError(t, os.WriteFile(frame, []byte("\xff\xd8frame"), 0o600))

	deps := scanner.ScanDeps(&capture.FileDriver{Paths: []string{frame}}, fixedRecognizer{}, time.Second)
	screen, err := surface.OpenScanScreen(ctx, deps, silentUI{}, silentUI{})
	require.NoError(t, err)
	defer screen.Close()

	out := screen.Capture(ctx)
	persisted, ok := out.(pipeline.Persisted)
	require.True(t, ok, "got %#v", out)
	assert.Equal(t, "Amoxicillin 500mg\n", persisted.Text)

	dialog, err := screen.OpenHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, dialog.Entries, 1)
}
