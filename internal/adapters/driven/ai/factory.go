package ai

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a new AI service factory
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{logger: logger}
}

// CreateEmbeddingService creates an embedding service from settings.
// It returns nil, nil when embedding is not configured.
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	if !settings.Provider.SupportsEmbedding() {
		return nil, fmt.Errorf("%w: %s cannot produce embeddings", domain.ErrInvalidProvider, settings.Provider)
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		svc, err = NewOpenAIEmbedding(settings)
	case domain.AIProviderOllama:
		svc, err = NewOllamaEmbedding(settings)
	case domain.AIProviderFastEmbed:
		svc, err = NewFastEmbed(settings)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("embedding service created",
		zap.String("provider", string(settings.Provider)),
		zap.String("model", svc.Model()),
		zap.Int("dimensions", svc.Dimensions()))
	return svc, nil
}

// CreateLLMService creates an LLM service from settings.
// It returns nil, nil when the LLM is not configured.
func (f *Factory) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	if !settings.Provider.SupportsLLM() {
		return nil, fmt.Errorf("%w: %s cannot generate text", domain.ErrInvalidProvider, settings.Provider)
	}

	var (
		svc *LLM
		err error
	)
	switch settings.Provider {
	case domain.AIProviderHuggingFace:
		svc, err = NewHuggingFaceLLM(settings)
	case domain.AIProviderOpenAI:
		svc, err = NewOpenAILLM(settings)
	case domain.AIProviderOllama:
		svc, err = NewOllamaLLM(settings)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("llm service created",
		zap.String("provider", string(settings.Provider)),
		zap.String("model", svc.Model()))
	return svc, nil
}
