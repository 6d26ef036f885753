package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CreateCollectionRequest represents a request to create a collection
type CreateCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateCollectionRequest represents a request to update a collection
type UpdateCollectionRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CollectionService manages collections and their vector indexes.
// Every method is scoped to the acting user; other users' collections are ErrForbidden.
type CollectionService interface {
	// Create creates a collection and provisions its index
	Create(ctx context.Context, userID int64, req CreateCollectionRequest) (*domain.Collection, error)

	// Get retrieves a collection owned by the user
	Get(ctx context.Context, userID, id int64) (*domain.Collection, error)

	// List returns the user's collections, newest first
	List(ctx context.Context, userID int64) ([]*domain.Collection, error)

	// Update updates name and/or description
	Update(ctx context.Context, userID, id int64, req UpdateCollectionRequest) (*domain.Collection, error)

	// Delete deletes a collection, its documents and its index
	Delete(ctx context.Context, userID, id int64) error
}
