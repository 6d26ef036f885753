package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CollectionStore handles collection persistence (PostgreSQL)
type CollectionStore interface {
	// Create inserts a collection and sets its ID and timestamps
	Create(ctx context.Context, collection *domain.Collection) error

	// Get retrieves a collection by ID
	Get(ctx context.Context, id int64) (*domain.Collection, error)

	// ListByUser returns the user's collections, newest first
	ListByUser(ctx context.Context, userID int64) ([]*domain.Collection, error)

	// ListIDsByUser returns the IDs of the user's collections in ascending order
	ListIDsByUser(ctx context.Context, userID int64) ([]int64, error)

	// Update persists name and description changes
	Update(ctx context.Context, collection *domain.Collection) error

	// Delete removes a collection and, by cascade, its documents
	Delete(ctx context.Context, id int64) error
}
