package mocks

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure MockVectorIndex implements VectorIndex
var _ driven.VectorIndex = (*MockVectorIndex)(nil)

// MockVectorIndex is an in-memory VectorIndex scoring by cosine similarity.
type MockVectorIndex struct {
	mu         sync.RWMutex
	indexes    map[string]map[string]map[string]domain.Vector
	queryCalls int

	// Hooks for error injection and score control (optional)
	CreateIndexErr error
	DeleteIndexErr error
	UpsertErr      error
	QueryFn        func(index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error)
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		indexes: make(map[string]map[string]map[string]domain.Vector),
	}
}

func (m *MockVectorIndex) CreateIndex(ctx context.Context, name string, spec domain.IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateIndexErr != nil {
		return m.CreateIndexErr
	}
	if _, ok := m.indexes[name]; !ok {
		m.indexes[name] = make(map[string]map[string]domain.Vector)
	}
	return nil
}

func (m *MockVectorIndex) DeleteIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteIndexErr != nil {
		return m.DeleteIndexErr
	}
	if _, ok := m.indexes[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, domain.ErrIndexNotFound)
	}
	delete(m.indexes, name)
	return nil
}

func (m *MockVectorIndex) Upsert(ctx context.Context, index, namespace string, vectors []domain.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	idx, ok := m.indexes[index]
	if !ok {
		return fmt.Errorf("upsert %s: %w", index, domain.ErrIndexNotFound)
	}
	ns, ok := idx[namespace]
	if !ok {
		ns = make(map[string]domain.Vector)
		idx[namespace] = ns
	}
	for _, v := range vectors {
		ns[v.ID] = v
	}
	return nil
}

func (m *MockVectorIndex) DeleteNamespace(ctx context.Context, index, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[index]
	if !ok {
		return fmt.Errorf("delete namespace in %s: %w", index, domain.ErrIndexNotFound)
	}
	delete(idx, namespace)
	return nil
}

func (m *MockVectorIndex) ListNamespaces(ctx context.Context, index string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.indexes[index]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", index, domain.ErrIndexNotFound)
	}
	names := make([]string, 0, len(idx))
	for name, ns := range idx {
		if len(ns) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockVectorIndex) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error) {
	m.mu.Lock()
	m.queryCalls++
	fn := m.QueryFn
	m.mu.Unlock()

	if fn != nil {
		return fn(index, namespace, vector, topK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.indexes[index]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", index, domain.ErrIndexNotFound)
	}

	var matches []*domain.VectorMatch
	for _, v := range idx[namespace] {
		matches = append(matches, &domain.VectorMatch{
			ID:       v.ID,
			Score:    cosine(vector, v.Values),
			Text:     v.Metadata[domain.MetadataText],
			Metadata: v.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockVectorIndex) Close() error {
	return nil
}

// Helper methods for testing

// HasIndex reports whether the named index exists
func (m *MockVectorIndex) HasIndex(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.indexes[name]
	return ok
}

// Vectors returns a copy of the vectors stored in a namespace, sorted by ID
func (m *MockVectorIndex) Vectors(index, namespace string) []domain.Vector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Vector
	for _, v := range m.indexes[index][namespace] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// QueryCalls returns how many namespace queries were issued
func (m *MockVectorIndex) QueryCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queryCalls
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
