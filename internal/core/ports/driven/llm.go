package driven

import (
	"context"
)

// LLMService generates text completions for chat answers
type LLMService interface {
	// Generate completes the prompt in a single call.
	// maxLength bounds the output length (model may not respect exactly).
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
