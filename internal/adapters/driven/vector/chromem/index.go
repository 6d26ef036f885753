// Package chromem is an in-process VectorIndex backed by chromem-go.
// It suits development and tests; nothing survives a restart.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// namespaceKey is the metadata key holding a vector's namespace.
const namespaceKey = "_namespace"

// Index maps every index to a chromem collection and every namespace to a
// metadata filter inside it. Vector IDs are tracked per namespace so that
// namespaces can be listed and queries capped at their size.
type Index struct {
	db     *chromem.DB
	logger *zap.Logger

	mu      sync.RWMutex
	indexes map[string]map[string]map[string]struct{} // index -> namespace -> vector IDs
}

// New creates an empty in-memory index.
func New(logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		db:      chromem.NewDB(),
		logger:  logger,
		indexes: make(map[string]map[string]map[string]struct{}),
	}
}

// noEmbedding guards against chromem embedding text itself; every vector
// arrives pre-computed.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("chromem: embeddings must be supplied by the caller")
}

func (x *Index) collection(name string) (*chromem.Collection, error) {
	c := x.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrIndexNotFound)
	}
	return c, nil
}

// CreateIndex creates a chromem collection. Existing indexes are kept.
func (x *Index) CreateIndex(ctx context.Context, name string, spec domain.IndexSpec) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.indexes[name]; ok {
		return nil
	}
	metadata := map[string]string{
		"dimension": strconv.Itoa(spec.Dimension),
		"metric":    string(spec.Metric),
	}
	if _, err := x.db.CreateCollection(name, metadata, noEmbedding); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	x.indexes[name] = make(map[string]map[string]struct{})
	x.logger.Debug("created in-memory index", zap.String("index", name))
	return nil
}

// DeleteIndex drops the collection and every namespace in it.
func (x *Index) DeleteIndex(ctx context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.indexes[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, domain.ErrIndexNotFound)
	}
	if err := x.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	delete(x.indexes, name)
	return nil
}

// docID makes vector IDs unique across the namespaces of one collection.
func docID(namespace, id string) string {
	return namespace + "/" + id
}

// Upsert writes vectors into a namespace.
func (x *Index) Upsert(ctx context.Context, index, namespace string, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	namespaces, ok := x.indexes[index]
	if !ok {
		return fmt.Errorf("upsert %s: %w", index, domain.ErrIndexNotFound)
	}
	c, err := x.collection(index)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(vectors))
	for i, v := range vectors {
		metadata := make(map[string]string, len(v.Metadata)+1)
		for k, val := range v.Metadata {
			metadata[k] = val
		}
		metadata[namespaceKey] = namespace

		content := v.Metadata[domain.MetadataText]
		if content == "" {
			content = v.ID
		}
		docs[i] = chromem.Document{
			ID:        docID(namespace, v.ID),
			Metadata:  metadata,
			Embedding: v.Values,
			Content:   content,
		}
	}
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("upsert into %s/%s: %w", index, namespace, err)
	}

	ids := namespaces[namespace]
	if ids == nil {
		ids = make(map[string]struct{}, len(vectors))
		namespaces[namespace] = ids
	}
	for _, v := range vectors {
		ids[v.ID] = struct{}{}
	}
	return nil
}

// DeleteNamespace removes every vector of a namespace.
func (x *Index) DeleteNamespace(ctx context.Context, index, namespace string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	namespaces, ok := x.indexes[index]
	if !ok {
		return fmt.Errorf("delete namespace in %s: %w", index, domain.ErrIndexNotFound)
	}
	ids := namespaces[namespace]
	if len(ids) == 0 {
		return nil
	}
	c, err := x.collection(index)
	if err != nil {
		return err
	}

	docIDs := make([]string, 0, len(ids))
	for id := range ids {
		docIDs = append(docIDs, docID(namespace, id))
	}
	if err := c.Delete(ctx, nil, nil, docIDs...); err != nil {
		return fmt.Errorf("delete namespace %s/%s: %w", index, namespace, err)
	}
	delete(namespaces, namespace)
	return nil
}

// ListNamespaces returns the non-empty namespaces of an index, sorted.
func (x *Index) ListNamespaces(ctx context.Context, index string) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	namespaces, ok := x.indexes[index]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", index, domain.ErrIndexNotFound)
	}
	names := make([]string, 0, len(namespaces))
	for ns, ids := range namespaces {
		if len(ids) > 0 {
			names = append(names, ns)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Query returns the topK most similar vectors of a namespace.
func (x *Index) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	namespaces, ok := x.indexes[index]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", index, domain.ErrIndexNotFound)
	}
	// chromem requires nResults <= number of candidates.
	k := min(topK, len(namespaces[namespace]))
	if k <= 0 {
		return []*domain.VectorMatch{}, nil
	}
	c, err := x.collection(index)
	if err != nil {
		return nil, err
	}

	results, err := c.QueryEmbedding(ctx, vector, k, map[string]string{namespaceKey: namespace}, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", index, namespace, err)
	}

	matches := make([]*domain.VectorMatch, 0, len(results))
	prefix := namespace + "/"
	for _, r := range results {
		metadata := make(map[string]string, len(r.Metadata))
		for key, v := range r.Metadata {
			if key != namespaceKey {
				metadata[key] = v
			}
		}
		matches = append(matches, &domain.VectorMatch{
			ID:       r.ID[len(prefix):],
			Score:    float64(r.Similarity),
			Text:     metadata[domain.MetadataText],
			Metadata: metadata,
		})
	}
	return matches, nil
}

// HealthCheck always succeeds; the index lives in process.
func (x *Index) HealthCheck(ctx context.Context) error {
	return nil
}

// Close drops all data.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for name := range x.indexes {
		if err := x.db.DeleteCollection(name); err != nil {
			return err
		}
	}
	x.indexes = make(map[string]map[string]map[string]struct{})
	return nil
}
