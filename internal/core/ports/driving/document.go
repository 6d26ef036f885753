package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CreateDocumentRequest represents a request to add a document to a collection.
// Empty title and content create an untitled placeholder.
type CreateDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateDocumentRequest represents a request to update a document
type UpdateDocumentRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// DocumentService manages documents and keeps their vectors in sync
type DocumentService interface {
	// Create stores a document and indexes its paragraphs
	Create(ctx context.Context, userID, collectionID int64, req CreateDocumentRequest) (*domain.Document, error)

	// Get retrieves a document of the collection
	Get(ctx context.Context, userID, collectionID, documentID int64) (*domain.Document, error)

	// List returns the documents of the collection
	List(ctx context.Context, userID, collectionID int64) ([]*domain.Document, error)

	// Update stores changes and re-indexes the document
	Update(ctx context.Context, userID, collectionID, documentID int64, req UpdateDocumentRequest) (*domain.Document, error)

	// Delete removes a document and its vectors
	Delete(ctx context.Context, userID, collectionID, documentID int64) error
}
