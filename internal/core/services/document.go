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

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface.
// Vector writes happen after the row is committed; a failed write
// surfaces as an error while the row change stands.
type documentService struct {
	collectionStore driven.CollectionStore
	documentStore   driven.DocumentStore
	indexer         *DocumentIndexer
	logger          *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	collectionStore driven.CollectionStore,
	documentStore driven.DocumentStore,
	indexer *DocumentIndexer,
	logger *zap.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &documentService{
		collectionStore: collectionStore,
		documentStore:   documentStore,
		indexer:         indexer,
		logger:          logger,
	}
}

// Create stores a document and indexes its paragraphs
func (s *documentService) Create(ctx context.Context, userID, collectionID int64, req driving.CreateDocumentRequest) (*domain.Document, error) {
	if _, err := ownedCollection(ctx, s.collectionStore, userID, collectionID); err != nil {
		return nil, err
	}

	doc := &domain.Document{
		Title:        strings.TrimSpace(req.Title),
		Content:      req.Content,
		CollectionID: collectionID,
	}
	if doc.Title == "" {
		doc.Title = domain.BlankDocumentPlaceholder
	}
	if strings.TrimSpace(doc.Content) == "" {
		doc.Content = domain.BlankDocumentPlaceholder
	}

	if err := s.documentStore.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	paragraphs, err := s.indexer.Index(ctx, doc)
	if err != nil {
		s.logger.Error("document stored but not indexed",
			zap.Int64("document_id", doc.ID),
			zap.Int64("collection_id", collectionID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("document created",
		zap.Int64("document_id", doc.ID),
		zap.Int64("collection_id", collectionID),
		zap.Int("paragraphs", paragraphs),
	)
	return doc, nil
}

// Get retrieves a document of the collection
func (s *documentService) Get(ctx context.Context, userID, collectionID, documentID int64) (*domain.Document, error) {
	if _, err := ownedCollection(ctx, s.collectionStore, userID, collectionID); err != nil {
		return nil, err
	}
	return s.documentIn(ctx, collectionID, documentID)
}

// List returns the documents of the collection
func (s *documentService) List(ctx context.Context, userID, collectionID int64) ([]*domain.Document, error) {
	if _, err := ownedCollection(ctx, s.collectionStore, userID, collectionID); err != nil {
		return nil, err
	}
	docs, err := s.documentStore.ListByCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*domain.Document{}
	}
	return docs, nil
}

// Update stores changes and re-indexes when the content changed
func (s *documentService) Update(ctx context.Context, userID, collectionID, documentID int64, req driving.UpdateDocumentRequest) (*domain.Document, error) {
	if _, err := ownedCollection(ctx, s.collectionStore, userID, collectionID); err != nil {
		return nil, err
	}
	doc, err := s.documentIn(ctx, collectionID, documentID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		doc.Title = strings.TrimSpace(*req.Title)
		if doc.Title == "" {
			doc.Title = domain.BlankDocumentPlaceholder
		}
	}
	contentChanged := false
	if req.Content != nil {
		content := *req.Content
		if strings.TrimSpace(content) == "" {
			content = domain.BlankDocumentPlaceholder
		}
		contentChanged = content != doc.Content
		doc.Content = content
	}

	if err := s.documentStore.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	if contentChanged {
		paragraphs, err := s.indexer.Index(ctx, doc)
		if err != nil {
			s.logger.Error("document updated but not re-indexed",
				zap.Int64("document_id", doc.ID),
				zap.Error(err),
			)
			return nil, err
		}
		s.logger.Info("document re-indexed",
			zap.Int64("document_id", doc.ID),
			zap.Int("paragraphs", paragraphs),
		)
	}
	return doc, nil
}

// Delete removes a document and its vectors
func (s *documentService) Delete(ctx context.Context, userID, collectionID, documentID int64) error {
	if _, err := ownedCollection(ctx, s.collectionStore, userID, collectionID); err != nil {
		return err
	}
	doc, err := s.documentIn(ctx, collectionID, documentID)
	if err != nil {
		return err
	}

	if err := s.documentStore.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if err := s.indexer.Remove(ctx, doc); err != nil {
		s.logger.Error("document deleted but vectors remain",
			zap.Int64("document_id", documentID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// documentIn loads a document and checks it belongs to the collection
func (s *documentService) documentIn(ctx context.Context, collectionID, documentID int64) (*domain.Document, error) {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.CollectionID != collectionID {
		return nil, fmt.Errorf("document %d: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}
