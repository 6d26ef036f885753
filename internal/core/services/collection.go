package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Ensure collectionService implements CollectionService
var _ driving.CollectionService = (*collectionService)(nil)

// collectionService implements the CollectionService interface
type collectionService struct {
	collectionStore driven.CollectionStore
	services        *runtime.Services
	indexSpec       domain.IndexSpec
	logger          *zap.Logger
}

// NewCollectionService creates a new CollectionService.
// indexSpec is used for new indexes; a zero dimension follows the embedding model.
func NewCollectionService(
	collectionStore driven.CollectionStore,
	services *runtime.Services,
	indexSpec domain.IndexSpec,
	logger *zap.Logger,
) driving.CollectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &collectionService{
		collectionStore: collectionStore,
		services:        services,
		indexSpec:       indexSpec,
		logger:          logger,
	}
}

// Create stores a collection, then provisions its index.
// Index failures are logged and do not fail the request.
func (s *collectionService) Create(ctx context.Context, userID int64, req driving.CreateCollectionRequest) (*domain.Collection, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}

	collection := &domain.Collection{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		UserID:      userID,
	}
	if err := s.collectionStore.Create(ctx, collection); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.createIndex(ctx, collection.ID)
	return collection, nil
}

// Get retrieves a collection owned by the user
func (s *collectionService) Get(ctx context.Context, userID, id int64) (*domain.Collection, error) {
	return ownedCollection(ctx, s.collectionStore, userID, id)
}

// List returns the user's collections, newest first
func (s *collectionService) List(ctx context.Context, userID int64) ([]*domain.Collection, error) {
	collections, err := s.collectionStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if collections == nil {
		collections = []*domain.Collection{}
	}
	return collections, nil
}

// Update changes name and/or description
func (s *collectionService) Update(ctx context.Context, userID, id int64, req driving.UpdateCollectionRequest) (*domain.Collection, error) {
	collection, err := ownedCollection(ctx, s.collectionStore, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", domain.ErrInvalidInput)
		}
		collection.Name = name
	}
	if req.Description != nil {
		collection.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.collectionStore.Update(ctx, collection); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return collection, nil
}

// Delete removes the collection row (documents cascade), then its index.
// Index failures are logged and do not fail the request.
func (s *collectionService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := ownedCollection(ctx, s.collectionStore, userID, id); err != nil {
		return err
	}
	if err := s.collectionStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	s.deleteIndex(ctx, id)
	return nil
}

// spec returns the index spec for new indexes
func (s *collectionService) spec() domain.IndexSpec {
	spec := s.indexSpec
	defaults := domain.DefaultIndexSpec()
	if spec.Dimension <= 0 {
		spec.Dimension = defaults.Dimension
		if embedder := s.services.EmbeddingService(); embedder != nil && embedder.Dimensions() > 0 {
			spec.Dimension = embedder.Dimensions()
		}
	}
	if spec.Metric == "" {
		spec.Metric = defaults.Metric
	}
	if spec.Cloud == "" {
		spec.Cloud = defaults.Cloud
	}
	if spec.Region == "" {
		spec.Region = defaults.Region
	}
	return spec
}

func (s *collectionService) createIndex(ctx context.Context, collectionID int64) {
	name := domain.IndexName(collectionID)
	index, err := s.services.RequireVectorIndex()
	if err == nil {
		err = index.CreateIndex(ctx, name, s.spec())
	}
	metrics.RecordIndexOperation("create_index", err)
	if err != nil {
		s.logger.Error("failed to create vector index",
			zap.Int64("collection_id", collectionID),
			zap.String("index", name),
			zap.Error(err),
		)
	}
}

func (s *collectionService) deleteIndex(ctx context.Context, collectionID int64) {
	name := domain.IndexName(collectionID)
	index, err := s.services.RequireVectorIndex()
	if err == nil {
		err = index.DeleteIndex(ctx, name)
	}
	metrics.RecordIndexOperation("delete_index", err)
	if err != nil {
		s.logger.Error("failed to delete vector index",
			zap.Int64("collection_id", collectionID),
			zap.String("index", name),
			zap.Error(err),
		)
	}
}
