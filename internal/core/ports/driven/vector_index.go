package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorIndex is a namespaced nearest-neighbour store.
// One index exists per collection; inside it every document owns one namespace.
type VectorIndex interface {
	// CreateIndex provisions a named index. Creating an existing index is not an error.
	CreateIndex(ctx context.Context, name string, spec domain.IndexSpec) error

	// DeleteIndex drops an index with all its namespaces.
	// Returns ErrIndexNotFound if the index does not exist.
	DeleteIndex(ctx context.Context, name string) error

	// Upsert writes vectors into a namespace, replacing vectors with the same ID
	Upsert(ctx context.Context, index, namespace string, vectors []domain.Vector) error

	// DeleteNamespace removes every vector of a namespace.
	// Deleting an empty or missing namespace is not an error.
	DeleteNamespace(ctx context.Context, index, namespace string) error

	// ListNamespaces returns the non-empty namespaces of an index.
	// Returns ErrIndexNotFound if the index does not exist.
	ListNamespaces(ctx context.Context, index string) ([]string, error)

	// Query returns the topK nearest vectors of a namespace, with metadata
	Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error)

	// HealthCheck verifies the provider is reachable
	HealthCheck(ctx context.Context) error

	// Close releases provider connections
	Close() error
}
