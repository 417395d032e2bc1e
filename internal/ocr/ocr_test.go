package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJPEG(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	path := filepath.Join(t.TempDir(), "Prescription_1.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestResultText(t *testing.T) {
	res := Result{Blocks: []Block{{Text: "Amoxicillin 500mg"}, {Text: "Twice daily"}}}
	assert.Equal(t, "Amoxicillin 500mg\nTwice daily\n", res.Text())
	assert.Equal(t, "", Result{}.Text())
}

func TestCheckImage(t *testing.T) {
	format, err := CheckImage(writeJPEG(t))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)

	_, err = CheckImage(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ErrImageUnreadable)

	corrupt := filepath.Join(t.TempDir(), "corrupt.jpg")
	require.NoError(t, os.WriteFile(corrupt, []byte("not an image"), 0o600))
	_, err = CheckImage(corrupt)
	assert.ErrorIs(t, err, ErrImageUnreadable)
}

type stubGenerator struct {
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (g *stubGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	g.parts = parts
	return g.resp, g.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}}}},
	}
}

func TestVertexEngine_SplitsParagraphsIntoBlocks(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("```\nAmoxicillin 500mg\n\nTwice daily\n```")}
	e := &VertexEngine{model: gen, logger: testLogger()}

	res, err := e.Recognize(context.Background(), writeJPEG(t))
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin 500mg\nTwice daily\n", res.Text())
	require.Len(t, gen.parts, 2)
	blob, ok := gen.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
}

func TestVertexEngine_EmptyTranscriptionIsNotAnError(t *testing.T) {
	e := &VertexEngine{model: &stubGenerator{resp: &genai.GenerateContentResponse{}}, logger: testLogger()}
	res, err := e.Recognize(context.Background(), writeJPEG(t))
	require.NoError(t, err)
	assert.Empty(t, res.Blocks)
	assert.Equal(t, "", res.Text())
}

func TestVertexEngine_EngineFailure(t *testing.T) {
	e := &VertexEngine{model: &stubGenerator{err: errors.New("quota exhausted")}, logger: testLogger()}
	_, err := e.Recognize(context.Background(), writeJPEG(t))
	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "generate content", engErr.Detail)
}

func TestVertexEngine_UnreadableImage(t *testing.T) {
	gen := &stubGenerator{}
	e := &VertexEngine{model: gen, logger: testLogger()}
	_, err := e.Recognize(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))
	assert.ErrorIs(t, err, ErrImageUnreadable)
	assert.Nil(t, gen.parts)
}
