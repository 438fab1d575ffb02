package generator

import (
	"context"
	"time"
)

// LLMClient abstracts the chat model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ImageClient turns a visual description into an image reference
// (a hosted URL or a data: URL).
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// LLMSettings is the provider configuration handed to concrete clients.
type LLMSettings struct {
	Provider   string
	Model      string
	ImageModel string
	APIKey     string
	BaseURL    string
	// Timeout bounds each request; zero keeps the SDK default.
	Timeout    time.Duration
}
