package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// searchService implements the SearchService interface
type searchService struct {
	collectionStore driven.CollectionStore
	retriever       *Retriever
	logger          *zap.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(
	collectionStore driven.CollectionStore,
	retriever *Retriever,
	logger *zap.Logger,
) driving.SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &searchService{
		collectionStore: collectionStore,
		retriever:       retriever,
		logger:          logger,
	}
}

// Search returns the raw retrieval matches over the selected collections
func (s *searchService) Search(ctx context.Context, userID int64, req domain.SearchRequest) (*domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1: %w", domain.ErrInvalidInput)
	}

	scope := domain.CollectionScope{All: req.AllCollections, IDs: req.CollectionIDs}
	collectionIDs, err := resolveScope(ctx, s.collectionStore, userID, scope)
	if err != nil {
		return nil, err
	}

	matches, err := s.retriever.Search(ctx, collectionIDs, query, req.Threshold)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	return &domain.SearchResult{
		Query:         query,
		CollectionIDs: collectionIDs,
		Matches:       matches,
		TotalCount:    len(matches),
	}, nil
}
