package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// DefaultRetrievalConcurrency bounds in-flight namespace queries per retrieval.
const DefaultRetrievalConcurrency = 8

// RetrieverConfig tunes the retrieval fan-out.
type RetrieverConfig struct {
	TopK        int
	Threshold   float64
	Concurrency int
}

// DefaultRetrieverConfig returns the production retrieval settings.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:        domain.DefaultTopK,
		Threshold:   domain.DefaultThreshold,
		Concurrency: DefaultRetrievalConcurrency,
	}
}

// Retriever finds the paragraphs relevant to a query across collection indexes.
// Each document namespace is queried for its own top-k, so there is no global
// result cap and no ranking across namespaces.
type Retriever struct {
	services *runtime.Services
	cfg      RetrieverConfig
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. Zero config fields take their defaults.
func NewRetriever(services *runtime.Services, cfg RetrieverConfig, logger *zap.Logger) *Retriever {
	defaults := DefaultRetrieverConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		services: services,
		cfg:      cfg,
		logger:   logger,
	}
}

// Threshold returns the default similarity threshold.
func (r *Retriever) Threshold() float64 {
	return r.cfg.Threshold
}

// namespaceTarget is one document namespace to query.
type namespaceTarget struct {
	collectionID int64
	documentID   int64
	index        string
	namespace    string
}

// Search returns every match scoring at or above threshold in the given collections.
// A threshold <= 0 uses the configured default. Collection ids must already be
// resolved and authorised by the caller.
func (r *Retriever) Search(ctx context.Context, collectionIDs []int64, query string, threshold float64) ([]*domain.RetrievalMatch, error) {
	if len(collectionIDs) == 0 {
		return []*domain.RetrievalMatch{}, nil
	}
	if threshold <= 0 {
		threshold = r.cfg.Threshold
	}

	index, err := r.services.RequireVectorIndex()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	targets, err := r.targets(ctx, index, collectionIDs)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		metrics.RecordRetrieval(time.Since(start), 0)
		return []*domain.RetrievalMatch{}, nil
	}

	embedder, err := r.services.RequireEmbedding()
	if err != nil {
		return nil, err
	}
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// One slot per target keeps the fan-out free of shared appends.
	results := make([][]*domain.RetrievalMatch, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, target := range targets {
		g.Go(func() error {
			matches, err := index.Query(gctx, target.index, target.namespace, vector, r.cfg.TopK)
			if err != nil {
				return fmt.Errorf("query %s/%s: %w", target.index, target.namespace, err)
			}
			kept := make([]*domain.RetrievalMatch, 0, len(matches))
			for _, m := range matches {
				if m == nil || m.Score < threshold {
					continue
				}
				kept = append(kept, &domain.RetrievalMatch{
					CollectionID: target.collectionID,
					DocumentID:   target.documentID,
					Match:        m,
				})
			}
			results[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*domain.RetrievalMatch
	for _, kept := range results {
		out = append(out, kept...)
	}
	if out == nil {
		out = []*domain.RetrievalMatch{}
	}
	domain.SortMatches(out)

	metrics.RecordRetrieval(time.Since(start), len(out))
	r.logger.Debug("retrieval complete",
		zap.Int("collections", len(collectionIDs)),
		zap.Int("namespaces", len(targets)),
		zap.Int("matches", len(out)),
		zap.Float64("threshold", threshold),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// targets lists the document namespaces of every collection.
// Collections without an index contribute nothing.
func (r *Retriever) targets(ctx context.Context, index driven.VectorIndex, collectionIDs []int64) ([]namespaceTarget, error) {
	var targets []namespaceTarget
	for _, collectionID := range collectionIDs {
		indexName := domain.IndexName(collectionID)
		namespaces, err := index.ListNamespaces(ctx, indexName)
		if errors.Is(err, domain.ErrIndexNotFound) {
			r.logger.Warn("collection has no vector index",
				zap.Int64("collection_id", collectionID),
				zap.String("index", indexName),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list namespaces of %s: %w", indexName, err)
		}

		for _, ns := range namespaces {
			documentID, err := domain.ParseNamespaceDocumentID(ns)
			if err != nil {
				r.logger.Warn("skipping unrecognised namespace",
					zap.String("index", indexName),
					zap.String("namespace", ns),
				)
				continue
			}
			targets = append(targets, namespaceTarget{
				collectionID: collectionID,
				documentID:   documentID,
				index:        indexName,
				namespace:    ns,
			})
		}
	}
	return targets, nil
}
