package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure LLM implements LLMService
var _ driven.LLMService = (*LLM)(nil)

// LLM implements LLMService over any langchaingo model.
type LLM struct {
	model    llms.Model
	name     string
	provider domain.AIProvider
}

// NewLLM wraps an existing langchaingo model.
func NewLLM(model llms.Model, name string, provider domain.AIProvider) *LLM {
	return &LLM{model: model, name: name, provider: provider}
}

// NewHuggingFaceLLM uses the Hugging Face inference API.
func NewHuggingFaceLLM(settings *domain.LLMSettings) (*LLM, error) {
	model := settings.Model
	if model == "" {
		model = domain.DefaultLLMModel
	}
	opts := []huggingface.Option{
		huggingface.WithToken(settings.APIKey),
		huggingface.WithModel(model),
	}
	if settings.BaseURL != "" {
		opts = append(opts, huggingface.WithURL(settings.BaseURL))
	}
	llm, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create huggingface client: %w", err)
	}
	return NewLLM(llm, model, domain.AIProviderHuggingFace), nil
}

// NewOllamaLLM uses a self-hosted Ollama.
func NewOllamaLLM(settings *domain.LLMSettings) (*LLM, error) {
	if settings.Model == "" {
		return nil, fmt.Errorf("%w: ollama model is required", domain.ErrInvalidInput)
	}
	opts := []ollama.Option{ollama.WithModel(settings.Model)}
	if settings.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(settings.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewLLM(llm, settings.Model, domain.AIProviderOllama), nil
}

// NewOpenAILLM uses the OpenAI API or an OpenAI-compatible server.
func NewOpenAILLM(settings *domain.LLMSettings) (*LLM, error) {
	if settings.Model == "" {
		return nil, fmt.Errorf("%w: openai model is required", domain.ErrInvalidInput)
	}
	token := settings.APIKey
	if token == "" {
		token = tokenPlaceholder
	}
	opts := []openai.Option{openai.WithToken(token), openai.WithModel(settings.Model)}
	if settings.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(settings.BaseURL, "/")))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewLLM(llm, settings.Model, domain.AIProviderOpenAI), nil
}

// Generate completes the prompt in one call. maxLength is passed both as a
// token budget and as the text-generation max_length the inference API reads.
func (l *LLM) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	var opts []llms.CallOption
	if maxLength > 0 {
		opts = append(opts, llms.WithMaxTokens(maxLength), llms.WithMaxLength(maxLength))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", l.provider, err)
	}
	return out, nil
}

// Model returns the model name being used
func (l *LLM) Model() string {
	return l.name
}

// Ping asks for a single token.
func (l *LLM) Ping(ctx context.Context) error {
	_, err := l.Generate(ctx, "ping", 1)
	return err
}

// Close is a no-op; langchaingo clients hold no dedicated resources.
func (l *LLM) Close() error {
	return nil
}
