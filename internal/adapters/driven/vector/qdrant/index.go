// Package qdrant implements VectorIndex on a Qdrant server over gRPC.
//
// Every index is a Qdrant collection. Namespaces are a keyword payload field
// with a payload index, so namespace filters and facet listing stay cheap.
package qdrant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

const (
	namespaceField = "namespace"
	vectorIDField  = "vector_id"

	// facetPageSize bounds one facet request; listings page past it.
	facetPageSize = 10000
)

// Config holds the connection settings.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	RequestTimeout time.Duration
	MaxMessageSize int
}

// DefaultConfig returns settings for a local Qdrant.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           6334,
		RequestTimeout: 30 * time.Second,
		MaxMessageSize: 50 * 1024 * 1024,
	}
}

// client is the subset of *qdrant.Client the index uses.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Facet(ctx context.Context, req *qdrant.FacetCounts) ([]*qdrant.FacetHit, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// Index implements driven.VectorIndex using Qdrant
type Index struct {
	client   client
	timeout  time.Duration
	logger   *zap.Logger
	pageSize int
}

// New connects to Qdrant.
func New(cfg Config, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	c, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	logger.Info("qdrant vector index configured",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Bool("tls", cfg.UseTLS),
	)
	return newIndex(c, cfg.RequestTimeout, logger), nil
}

func newIndex(c client, timeout time.Duration, logger *zap.Logger) *Index {
	return &Index{client: c, timeout: timeout, logger: logger, pageSize: facetPageSize}
}

// translateError maps a gRPC NotFound to ErrIndexNotFound.
func translateError(op, index string, err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
		return fmt.Errorf("%s %s: %w", op, index, domain.ErrIndexNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, index, err)
}

func distance(metric domain.DistanceMetric) qdrant.Distance {
	switch metric {
	case domain.MetricDotProduct:
		return qdrant.Distance_Dot
	case domain.MetricEuclidean:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// pointID derives a stable UUID, as Qdrant accepts only UUIDs and integers.
func pointID(namespace, vectorID string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"/"+vectorID)).String())
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(namespaceField, namespace)},
	}
}

// CreateIndex creates the collection and its namespace payload index.
func (x *Index) CreateIndex(ctx context.Context, name string, spec domain.IndexSpec) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return translateError("check", name, err)
	}
	if exists {
		return nil
	}

	err = x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: distance(spec.Metric),
		}),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
			return nil
		}
		return translateError("create", name, err)
	}

	_, err = x.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      namespaceField,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	return translateError("create namespace field index in", name, err)
}

// DeleteIndex drops the collection.
func (x *Index) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	exists, err := x.client.CollectionExists(ctx, name)
	if err != nil {
		return translateError("check", name, err)
	}
	if !exists {
		return fmt.Errorf("delete %s: %w", name, domain.ErrIndexNotFound)
	}
	return translateError("delete", name, x.client.DeleteCollection(ctx, name))
}

// Upsert writes vectors into a namespace.
func (x *Index) Upsert(ctx context.Context, index, namespace string, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		payload := make(map[string]any, len(v.Metadata)+2)
		for k, val := range v.Metadata {
			payload[k] = val
		}
		payload[namespaceField] = namespace
		payload[vectorIDField] = v.ID

		points[i] = &qdrant.PointStruct{
			Id:      pointID(namespace, v.ID),
			Vectors: qdrant.NewVectors(v.Values...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	wait := true
	_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: index,
		Wait:           &wait,
		Points:         points,
	})
	return translateError("upsert into", index, err)
}

// DeleteNamespace removes every point of a namespace.
func (x *Index) DeleteNamespace(ctx context.Context, index, namespace string) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	wait := true
	_, err := x.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: index,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
	})
	return translateError("delete namespace in", index, err)
}

// ListNamespaces facets the namespace field. Facets have no offset, so each
// further page excludes the namespaces already seen.
func (x *Index) ListNamespaces(ctx context.Context, index string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	names := make([]string, 0)
	seen := make(map[string]bool)
	for {
		req := &qdrant.FacetCounts{
			CollectionName: index,
			Key:            namespaceField,
			Limit:          qdrant.PtrOf(uint64(x.pageSize)),
		}
		if len(names) > 0 {
			req.Filter = &qdrant.Filter{MustNot: []*qdrant.Condition{namespacesCondition(append([]string(nil), names...))}}
		}

		hits, err := x.client.Facet(ctx, req)
		if err != nil {
			return nil, translateError("list namespaces of", index, err)
		}

		added := 0
		for _, hit := range hits {
			ns := hit.GetValue().GetStringValue()
			if ns == "" || hit.GetCount() == 0 || seen[ns] {
				continue
			}
			seen[ns] = true
			names = append(names, ns)
			added++
		}
		if len(hits) < x.pageSize {
			break
		}
		if added == 0 {
			return nil, fmt.Errorf("list namespaces of %s: facet page made no progress after %d namespaces", index, len(names))
		}
		x.logger.Debug("namespace listing continues", zap.String("index", index), zap.Int("listed", len(names)))
	}

	sort.Strings(names)
	return names, nil
}

// namespacesCondition matches points in any of the given namespaces.
func namespacesCondition(namespaces []string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: namespaceField,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: namespaces},
					},
				},
			},
		},
	}
}

// Query searches one namespace.
func (x *Index) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error) {
	if topK <= 0 {
		return []*domain.VectorMatch{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: index,
		Query:          qdrant.NewQuery(vector...),
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, translateError("query", index, err)
	}

	matches := make([]*domain.VectorMatch, 0, len(points))
	for _, p := range points {
		matches = append(matches, toMatch(p))
	}
	return matches, nil
}

func toMatch(p *qdrant.ScoredPoint) *domain.VectorMatch {
	metadata := make(map[string]string, len(p.GetPayload()))
	for k, v := range p.GetPayload() {
		if k == namespaceField || k == vectorIDField {
			continue
		}
		metadata[k] = v.GetStringValue()
	}

	id := p.GetPayload()[vectorIDField].GetStringValue()
	if id == "" {
		id = p.GetId().GetUuid()
	}
	return &domain.VectorMatch{
		ID:       id,
		Score:    float64(p.GetScore()),
		Text:     metadata[domain.MetadataText],
		Metadata: metadata,
	}
}

// HealthCheck pings the server.
func (x *Index) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	if _, err := x.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}
