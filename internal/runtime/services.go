package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Services holds the external AI and vector services used by the core.
// Every service is injected here instead of living in a package global,
// so tests swap in fakes and operators can rebuild a service without a restart.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil)
	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
	vectorIndex      driven.VectorIndex
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// VectorIndex returns the vector index (may be nil)
func (s *Services) VectorIndex() driven.VectorIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorIndex
}

// RequireEmbedding returns the embedding service or ErrServiceUnavailable
func (s *Services) RequireEmbedding() (driven.EmbeddingService, error) {
	svc := s.EmbeddingService()
	if svc == nil {
		return nil, fmt.Errorf("embedding service: %w", domain.ErrServiceUnavailable)
	}
	return svc, nil
}

// RequireLLM returns the LLM service or ErrServiceUnavailable
func (s *Services) RequireLLM() (driven.LLMService, error) {
	svc := s.LLMService()
	if svc == nil {
		return nil, fmt.Errorf("llm service: %w", domain.ErrServiceUnavailable)
	}
	return svc, nil
}

// RequireVectorIndex returns the vector index or ErrServiceUnavailable
func (s *Services) RequireVectorIndex() (driven.VectorIndex, error) {
	idx := s.VectorIndex()
	if idx == nil {
		return nil, fmt.Errorf("vector index: %w", domain.ErrServiceUnavailable)
	}
	return idx, nil
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService updates the LLM service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil {
		_ = s.llmService.Close()
	}

	s.llmService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// SetVectorIndex updates the vector index, closing the old one if present.
func (s *Services) SetVectorIndex(idx driven.VectorIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vectorIndex != nil {
		_ = s.vectorIndex.Close()
	}
	s.vectorIndex = idx
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}
	if s.vectorIndex != nil {
		_ = s.vectorIndex.Close()
		s.vectorIndex = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)

	return nil
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM validates connectivity before setting LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetLLMService(svc)
	return nil
}

// Configure builds the AI services from settings through the factory.
// When validate is true each service must answer a health check first.
func (s *Services) Configure(
	ctx context.Context,
	factory driven.AIServiceFactory,
	embedding *domain.EmbeddingSettings,
	llm *domain.LLMSettings,
	validate bool,
) error {
	embeddingSvc, err := factory.CreateEmbeddingService(embedding)
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}
	llmSvc, err := factory.CreateLLMService(llm)
	if err != nil {
		if embeddingSvc != nil {
			_ = embeddingSvc.Close()
		}
		return fmt.Errorf("create llm service: %w", err)
	}

	if !validate {
		s.SetEmbeddingService(embeddingSvc)
		s.SetLLMService(llmSvc)
		return nil
	}

	if err := s.ValidateAndSetEmbedding(ctx, embeddingSvc); err != nil {
		if llmSvc != nil {
			_ = llmSvc.Close()
		}
		return fmt.Errorf("embedding health check: %w", err)
	}
	if err := s.ValidateAndSetLLM(ctx, llmSvc); err != nil {
		return fmt.Errorf("llm health check: %w", err)
	}
	return nil
}
