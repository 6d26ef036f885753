//go:build cgo

package ai

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure FastEmbed implements EmbeddingService
var _ driven.EmbeddingService = (*FastEmbed)(nil)

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
}

var fastEmbedDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.AllMiniLML6V2: 384,
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
}

// FastEmbed runs ONNX embedding models in process.
type FastEmbed struct {
	mu        sync.RWMutex
	model     *fastembed.FlagEmbedding
	name      string
	dimension int
}

// NewFastEmbed loads the model, downloading it into CacheDir on first use.
func NewFastEmbed(settings *domain.EmbeddingSettings) (*FastEmbed, error) {
	name := settings.Model
	if name == "" {
		name = domain.DefaultEmbeddingModel
	}
	model, ok := fastEmbedModels[name]
	if !ok {
		return nil, fmt.Errorf("%w: fastembed does not support model %q", domain.ErrInvalidInput, name)
	}

	cacheDir := settings.CacheDir
	if cacheDir == "" {
		cacheDir = "local_cache"
	}
	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("init fastembed: %w", err)
	}

	return &FastEmbed{model: flag, name: name, dimension: fastEmbedDimensions[model]}, nil
}

// Embed generates passage embeddings.
func (f *FastEmbed) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return nil, domain.ErrServiceUnavailable
	}
	vectors, err := f.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("fastembed passages: %w", err)
	}
	return vectors, nil
}

// EmbedQuery generates a query embedding.
func (f *FastEmbed) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return nil, domain.ErrServiceUnavailable
	}
	vector, err := f.model.QueryEmbed(query)
	if err != nil {
		return nil, fmt.Errorf("fastembed query: %w", err)
	}
	return vector, nil
}

func (f *FastEmbed) Dimensions() int { return f.dimension }

func (f *FastEmbed) Model() string { return f.name }

// HealthCheck reports whether the model is loaded.
func (f *FastEmbed) HealthCheck(ctx context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return domain.ErrServiceUnavailable
	}
	return nil
}

// Close releases the ONNX session.
func (f *FastEmbed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model == nil {
		return nil
	}
	err := f.model.Destroy()
	f.model = nil
	return err
}
