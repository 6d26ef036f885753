package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure MockChatHistoryStore implements ChatHistoryStore
var _ driven.ChatHistoryStore = (*MockChatHistoryStore)(nil)

// MockChatHistoryStore keeps history rows in insertion order
type MockChatHistoryStore struct {
	mu      sync.RWMutex
	entries []*domain.ChatHistory

	// AppendErr, when set, is returned by Append
	AppendErr error
}

// NewMockChatHistoryStore creates a new MockChatHistoryStore
func NewMockChatHistoryStore() *MockChatHistoryStore {
	return &MockChatHistoryStore{}
}

func (m *MockChatHistoryStore) Append(ctx context.Context, entry *domain.ChatHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	entry.ID = int64(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	cp := *entry
	cp.CollectionIDs = append([]int64(nil), entry.CollectionIDs...)
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockChatHistoryStore) ListByUser(ctx context.Context, userID int64) ([]*domain.ChatHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ChatHistory
	for _, e := range m.entries {
		if e.UserID == userID {
			cp := *e
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Count returns the number of stored rows
func (m *MockChatHistoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
