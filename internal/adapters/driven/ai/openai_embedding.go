package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Embedding implements EmbeddingService
var _ driven.EmbeddingService = (*Embedding)(nil)

// knownDimensions lists output sizes of common embedding models.
var knownDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-base-en-v1.5":                  768,
	"nomic-embed-text":                       768,
	"mxbai-embed-large":                      1024,
	"text-embedding-3-small":                 1536,
	"text-embedding-3-large":                 3072,
	"text-embedding-ada-002":                 1536,
}

// tokenPlaceholder satisfies langchaingo for keyless OpenAI-compatible
// servers such as Text Embeddings Inference.
const tokenPlaceholder = "placeholder"

// Embedding implements EmbeddingService over a langchaingo embedder.
type Embedding struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
}

func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if d, ok := knownDimensions[settings.Model]; ok {
		return d
	}
	return domain.DefaultEmbeddingDimensions
}

// NewOpenAIEmbedding creates an embedding service for the OpenAI API or any
// OpenAI-compatible server (TEI, vLLM, LocalAI).
func NewOpenAIEmbedding(settings *domain.EmbeddingSettings) (*Embedding, error) {
	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModel
	}
	token := settings.APIKey
	if token == "" {
		token = tokenPlaceholder
	}

	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	}
	if settings.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(settings.BaseURL, "/")))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	resolved := *settings
	resolved.Model = model
	return &Embedding{embedder: embedder, model: model, dimensions: dimensionsFor(&resolved)}, nil
}

// NewOllamaEmbedding creates an embedding service on a self-hosted Ollama.
func NewOllamaEmbedding(settings *domain.EmbeddingSettings) (*Embedding, error) {
	if settings.Model == "" {
		return nil, fmt.Errorf("%w: ollama embedding model is required", domain.ErrInvalidInput)
	}

	opts := []ollama.Option{ollama.WithModel(settings.Model)}
	if settings.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(settings.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &Embedding{embedder: embedder, model: settings.Model, dimensions: dimensionsFor(settings)}, nil
}

// Embed generates one embedding per text, in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a search query
func (e *Embedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embed query: empty embedding")
	}
	return vector, nil
}

// Dimensions returns the embedding dimension size
func (e *Embedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *Embedding) Model() string {
	return e.model
}

// HealthCheck embeds a short probe.
func (e *Embedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close is a no-op; the HTTP clients hold no dedicated resources.
func (e *Embedding) Close() error {
	return nil
}
