package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Create inserts a document and sets its ID and timestamps.
	// A second untitled placeholder in a collection is ErrBlankDocumentExists;
	// the check and the insert are atomic.
	Create(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// ListByCollection returns the documents of a collection in creation order
	ListByCollection(ctx context.Context, collectionID int64) ([]*domain.Document, error)

	// Update persists title and content changes under the same blank rule as Create
	Update(ctx context.Context, doc *domain.Document) error

	// Delete removes a document
	Delete(ctx context.Context, id int64) error
}
