package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/prescriptionreader/internal/gcp"
)

// ContentGenerator is the slice of *genai.GenerativeModel the engine needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexEngine implements Recognizer by asking a Gemini model to transcribe the
// image. Paragraphs in the transcription become blocks.
type VertexEngine struct {
	model  ContentGenerator
	closer io.Closer
	logger *slog.Logger
}

// NewVertexEngine wraps the transcriber model of a VertexClient. Closing the
// engine closes the client.
func NewVertexEngine(client *gcp.VertexClient) *VertexEngine {
	return &VertexEngine{
		model:  client.TranscriberModel,
		closer: client,
		logger: slog.With("component", "ocr", "engine", "vertex"),
	}
}

// Recognize sends the image to the model and splits the transcription into blocks.
func (e *VertexEngine) Recognize(ctx context.Context, path string) (Result, error) {
	format, err := CheckImage(path)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrImageUnreadable, err)
	}

	resp, err := e.model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(gcp.TranscriberUserPrompt))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		e.logger.Error("Call to Vertex AI for transcription failed", "error", err, "path", path)
		return Result{}, &EngineError{Detail: "generate content", Err: err}
	}

	text := extractTranscription(resp)
	if text == "" {
		e.logger.Warn("No text extracted from transcription response. Treating as empty page.", "path", path)
	}
	return Result{Blocks: splitBlocks(text)}, nil
}

// Close releases the Vertex AI client when the engine owns one.
func (e *VertexEngine) Close() error {
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// extractTranscription concatenates the text parts of the first candidate.
func extractTranscription(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}

	contentStr := strings.TrimSpace(content.String())
	contentStr = strings.TrimPrefix(contentStr, "```text")
	contentStr = strings.TrimPrefix(contentStr, "```")
	contentStr = strings.TrimSuffix(contentStr, "```")
	return strings.TrimSpace(contentStr)
}

// splitBlocks treats blank-line separated paragraphs as blocks.
func splitBlocks(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []Block
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		blocks = append(blocks, Block{Text: para})
	}
	return blocks
}
