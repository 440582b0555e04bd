package llm

import (
	"context"
)

// Request is one text generation call. JSON asks the provider for a JSON body
// where it supports a response MIME type.
type Request struct {
	Prompt    string
	JSON      bool
	MaxTokens int
}

// Completion carries the text and the usage the provider reported.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

type LLMClient interface {
	Generate(ctx context.Context, req Request) (Completion, error)
}

// ImageRequest asks for a single image. Reference is an optional data URL or
// raw base64 PNG used as a style/subject reference.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Reference   string
}

// Image is a data URL plus usage. An empty URL means the provider returned no image.
type Image struct {
	URL          string
	InputTokens  int
	OutputTokens int
}

type ImageClient interface {
	GenerateImage(ctx context.Context, req ImageRequest) (Image, error)
}
