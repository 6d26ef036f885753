package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService exposes raw retrieval over the user's collections
type SearchService interface {
	// Search returns the paragraphs matching the query at or above the threshold
	Search(ctx context.Context, userID int64, req domain.SearchRequest) (*domain.SearchResult, error)
}
