package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Transcriber Model Prompts ---
const TranscriberSystemPrompt = "You are an optical character recognition engine. You transcribe the text visible in a photograph of a paper medical prescription. You never summarize, interpret, or correct the text."
const TranscriberUserPrompt = `Transcribe all printed and handwritten text in the attached image.

Follow these rules precisely:
1.  Output plain text only. No markdown, no code fences, no commentary.
2.  Keep the reading order of the page: top to bottom, left to right.
3.  Separate visually distinct text blocks with a single blank line. Lines inside one block are separated by a single newline.
4.  If a word is illegible, transcribe the legible characters only. Do not guess drug names or dosages.
5.  If the image contains no text, output nothing.`

// VertexClient holds the pre-configured generative model used for transcription.
type VertexClient struct {
	TranscriberModel *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding the transcription model.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	transcriberModel := baseClient.GenerativeModel("gemini-1.5-pro")
	transcriberModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranscriberSystemPrompt)},
	}
	transcriberModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		TranscriberModel: transcriberModel,
		baseClient:       baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
