package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure MockCollectionStore implements CollectionStore
var _ driven.CollectionStore = (*MockCollectionStore)(nil)

// MockCollectionStore is a mock implementation of CollectionStore for testing
type MockCollectionStore struct {
	mu          sync.RWMutex
	nextID      int64
	collections map[int64]*domain.Collection

	// Hooks for error injection (optional)
	CreateErr error
	DeleteErr error
}

// NewMockCollectionStore creates a new MockCollectionStore
func NewMockCollectionStore() *MockCollectionStore {
	return &MockCollectionStore{
		collections: make(map[int64]*domain.Collection),
	}
}

func (m *MockCollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.nextID++
	c.ID = m.nextID
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.collections[c.ID] = cloneCollection(c)
	return nil
}

func (m *MockCollectionStore) Get(ctx context.Context, id int64) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCollection(c), nil
}

func (m *MockCollectionStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Collection
	for _, c := range m.collections {
		if c.UserID == userID {
			result = append(result, cloneCollection(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *MockCollectionStore) ListIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, c := range m.collections {
		if c.UserID == userID {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockCollectionStore) Update(ctx context.Context, c *domain.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[c.ID]; !ok {
		return domain.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	m.collections[c.ID] = cloneCollection(c)
	return nil
}

func (m *MockCollectionStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.collections[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.collections, id)
	return nil
}

// Helper methods for testing

// Put stores a collection with a caller-chosen ID.
func (m *MockCollectionStore) Put(c *domain.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID > m.nextID {
		m.nextID = c.ID
	}
	m.collections[c.ID] = cloneCollection(c)
}

// Count returns the number of stored collections
func (m *MockCollectionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections)
}

func cloneCollection(c *domain.Collection) *domain.Collection {
	cp := *c
	return &cp
}
