package llmclient

import (
	"context"
	"encoding/json"
	"errors"

	genai "google.golang.org/genai"
)

var (
	ErrMissingAPIKey = errors.New("gemini api key is not configured")
	ErrEmptyResponse = errors.New("empty response from LLM")
)

// Blob is binary content with its MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// JSONRequest asks the model for structured output about an image.
type JSONRequest struct {
	SystemInstruction string
	Prompt            string
	Image             Blob
	// Schema constrains the response. Nil leaves the shape to the prompt.
	Schema *genai.Schema
}

// ImageRequest asks the model to produce an image from a reference image.
type ImageRequest struct {
	Prompt string
	Image  Blob
}

// Client is the surface the analysis pipeline needs from a model provider.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, req JSONRequest) (json.RawMessage, error)
	// GenerateImage returns nil with no error when the response carries no image.
	GenerateImage(ctx context.Context, req ImageRequest) (*Blob, error)
}
