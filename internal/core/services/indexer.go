package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Indexer defaults.
const (
	DefaultEmbedBatchSize = 64
	DefaultLockTTL        = 2 * time.Minute
	DefaultLockWait       = 30 * time.Second
	lockRetryInterval     = 100 * time.Millisecond
)

// DocumentIndexerConfig holds dependencies for the document indexer
type DocumentIndexerConfig struct {
	Services *runtime.Services
	Pipeline driven.PostProcessorPipeline

	// Lock serializes re-indexing of one document across instances (optional)
	Lock     driven.DistributedLock
	LockTTL  time.Duration
	LockWait time.Duration

	BatchSize int
	Logger    *zap.Logger
}

// DocumentIndexer keeps a document's namespace in sync with its content.
// Indexing replaces the namespace: delete every vector, then upsert the
// current paragraphs, so old and new paragraphs never mix.
type DocumentIndexer struct {
	services  *runtime.Services
	pipeline  driven.PostProcessorPipeline
	lock      driven.DistributedLock
	lockTTL   time.Duration
	lockWait  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewDocumentIndexer creates a DocumentIndexer
func NewDocumentIndexer(cfg DocumentIndexerConfig) *DocumentIndexer {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = DefaultLockWait
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &DocumentIndexer{
		services:  cfg.Services,
		pipeline:  cfg.Pipeline,
		lock:      cfg.Lock,
		lockTTL:   cfg.LockTTL,
		lockWait:  cfg.LockWait,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}
}

// Index replaces the document's vectors with its current paragraphs.
// Returns the number of paragraphs written.
func (x *DocumentIndexer) Index(ctx context.Context, doc *domain.Document) (int, error) {
	index, err := x.services.RequireVectorIndex()
	if err != nil {
		return 0, err
	}

	paragraphs := x.pipeline.Process(doc.Content)

	var vectors []domain.Vector
	if len(paragraphs) > 0 {
		vectors, err = x.embed(ctx, doc, paragraphs)
		if err != nil {
			return 0, err
		}
	}

	release, err := x.acquire(ctx, doc.ID)
	if err != nil {
		return 0, err
	}
	defer release()

	indexName := domain.IndexName(doc.CollectionID)
	namespace := domain.NamespaceName(doc.ID)

	err = index.DeleteNamespace(ctx, indexName, namespace)
	if err == nil && len(vectors) > 0 {
		err = index.Upsert(ctx, indexName, namespace, vectors)
	}
	metrics.RecordIndexOperation("index_document", err)
	if err != nil {
		return 0, fmt.Errorf("index document %d: %w", doc.ID, err)
	}

	x.logger.Debug("document indexed",
		zap.Int64("document_id", doc.ID),
		zap.String("index", indexName),
		zap.Int("paragraphs", len(vectors)),
	)
	return len(vectors), nil
}

// Remove deletes every vector of the document.
// A missing collection index means there is nothing to remove.
func (x *DocumentIndexer) Remove(ctx context.Context, doc *domain.Document) error {
	index, err := x.services.RequireVectorIndex()
	if err != nil {
		return err
	}

	release, err := x.acquire(ctx, doc.ID)
	if err != nil {
		return err
	}
	defer release()

	indexName := domain.IndexName(doc.CollectionID)
	err = index.DeleteNamespace(ctx, indexName, domain.NamespaceName(doc.ID))
	if errors.Is(err, domain.ErrIndexNotFound) {
		x.logger.Warn("collection index missing while removing document",
			zap.Int64("document_id", doc.ID),
			zap.String("index", indexName),
		)
		err = nil
	}
	metrics.RecordIndexOperation("remove_document", err)
	if err != nil {
		return fmt.Errorf("remove document %d: %w", doc.ID, err)
	}
	return nil
}

// embed turns paragraphs into vectors, in batches
func (x *DocumentIndexer) embed(ctx context.Context, doc *domain.Document, paragraphs []driven.Chunk) ([]domain.Vector, error) {
	embedder, err := x.services.RequireEmbedding()
	if err != nil {
		return nil, err
	}

	vectors := make([]domain.Vector, 0, len(paragraphs))
	for start := 0; start < len(paragraphs); start += x.batchSize {
		end := min(start+x.batchSize, len(paragraphs))
		batch := paragraphs[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Content
		}
		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed paragraphs: %w", err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("embed paragraphs: got %d embeddings for %d texts", len(embeddings), len(batch))
		}

		for i, p := range batch {
			vectors = append(vectors, domain.Vector{
				ID:     domain.VectorID(p.Position),
				Values: embeddings[i],
				Metadata: map[string]string{
					domain.MetadataText:         p.Content,
					domain.MetadataCollectionID: strconv.FormatInt(doc.CollectionID, 10),
					domain.MetadataDocumentID:   strconv.FormatInt(doc.ID, 10),
					domain.MetadataParagraph:    strconv.Itoa(p.Position),
				},
			})
		}
	}
	return vectors, nil
}

// acquire takes the document lock, retrying until lockWait elapses.
// Without a lock backend it is a no-op.
func (x *DocumentIndexer) acquire(ctx context.Context, documentID int64) (func(), error) {
	if x.lock == nil {
		return func() {}, nil
	}

	name := domain.NamespaceName(documentID)
	waitCtx, cancel := context.WithTimeout(ctx, x.lockWait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := x.lock.Acquire(waitCtx, name, x.lockTTL)
		if err != nil {
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return nil, fmt.Errorf("lock %s: %w", name, domain.ErrLockNotAcquired)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if acquired {
			return func() {
				// The request context may already be cancelled here
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := x.lock.Release(releaseCtx, name); err != nil {
					x.logger.Warn("failed to release document lock", zap.String("lock", name), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("lock %s: %w", name, domain.ErrLockNotAcquired)
		case <-ticker.C:
		}
	}
}
