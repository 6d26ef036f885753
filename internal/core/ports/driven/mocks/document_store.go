package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure MockDocumentStore implements DocumentStore
var _ driven.DocumentStore = (*MockDocumentStore)(nil)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	nextID    int64
	documents map[int64]*domain.Document

	// Hooks for error injection (optional)
	CreateErr error
	UpdateErr error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[int64]*domain.Document),
	}
}

func (m *MockDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.hasOtherBlank(doc) {
		return domain.ErrBlankDocumentExists
	}
	m.nextID++
	doc.ID = m.nextID
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	m.documents[doc.ID] = cloneDocument(doc)
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id int64) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (m *MockDocumentStore) ListByCollection(ctx context.Context, collectionID int64) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Document
	for _, doc := range m.documents {
		if doc.CollectionID == collectionID {
			result = append(result, cloneDocument(doc))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockDocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.documents[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	if m.hasOtherBlank(doc) {
		return domain.ErrBlankDocumentExists
	}
	doc.UpdatedAt = time.Now()
	m.documents[doc.ID] = cloneDocument(doc)
	return nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

// Helper methods for testing

// Put stores a document with a caller-chosen ID.
func (m *MockDocumentStore) Put(doc *domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID > m.nextID {
		m.nextID = doc.ID
	}
	m.documents[doc.ID] = cloneDocument(doc)
}

// DeleteByCollection mimics the ON DELETE CASCADE of the documents table.
func (m *MockDocumentStore) DeleteByCollection(collectionID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, doc := range m.documents {
		if doc.CollectionID == collectionID {
			delete(m.documents, id)
		}
	}
}

// Count returns the number of stored documents
func (m *MockDocumentStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

// hasOtherBlank reports whether doc is a placeholder and another one exists. Callers hold mu.
func (m *MockDocumentStore) hasOtherBlank(doc *domain.Document) bool {
	if !doc.IsBlank() {
		return false
	}
	for _, other := range m.documents {
		if other.ID != doc.ID && other.CollectionID == doc.CollectionID && other.IsBlank() {
			return true
		}
	}
	return false
}

func cloneDocument(doc *domain.Document) *domain.Document {
	cp := *doc
	return &cp
}
