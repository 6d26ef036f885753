// Package pinecone implements VectorIndex on Pinecone serverless indexes.
//
// One Pinecone index exists per collection. Namespaces map one to one onto
// Pinecone namespaces.
package pinecone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

// Config holds the Pinecone settings.
type Config struct {
	APIKey         string
	RequestTimeout time.Duration
}

// controlPlane is the subset of *pinecone.Client managing indexes.
type controlPlane interface {
	CreateServerlessIndex(ctx context.Context, req *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
	DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error)
	DeleteIndex(ctx context.Context, name string) error
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
}

// dataPlane is the subset of *pinecone.IndexConnection used per namespace.
type dataPlane interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	DeleteAllVectorsInNamespace(ctx context.Context) error
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// connectFunc opens a data plane connection bound to one namespace.
type connectFunc func(host, namespace string) (dataPlane, error)

// Index implements driven.VectorIndex using Pinecone
type Index struct {
	control controlPlane
	connect connectFunc
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	hosts map[string]string
}

// New creates a Pinecone client.
func New(cfg Config, logger *zap.Logger) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pinecone api key is required", domain.ErrInvalidInput)
	}
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	connect := func(host, namespace string) (dataPlane, error) {
		return pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
	}
	return newIndex(pc, connect, cfg.RequestTimeout, logger), nil
}

func newIndex(control controlPlane, connect connectFunc, timeout time.Duration, logger *zap.Logger) *Index {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		control: control,
		connect: connect,
		timeout: timeout,
		logger:  logger,
		hosts:   make(map[string]string),
	}
}

// isNotFound recognises 404s from both the REST control plane and the
// gRPC data plane.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

func isConflict(err error) bool {
	if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "409") || strings.Contains(msg, "already exists")
}

func metric(m domain.DistanceMetric) pinecone.IndexMetric {
	switch m {
	case domain.MetricDotProduct:
		return pinecone.Dotproduct
	case domain.MetricEuclidean:
		return pinecone.Euclidean
	default:
		return pinecone.Cosine
	}
}

// CreateIndex provisions a serverless index; an existing one is kept.
func (x *Index) CreateIndex(ctx context.Context, name string, spec domain.IndexSpec) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	idx, err := x.control.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      name,
		Dimension: int32(spec.Dimension),
		Metric:    metric(spec.Metric),
		Cloud:     pinecone.Cloud(spec.Cloud),
		Region:    spec.Region,
	})
	if err != nil {
		if isConflict(err) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	if idx != nil && idx.Host != "" {
		x.rememberHost(name, idx.Host)
	}
	x.logger.Info("created pinecone index", zap.String("index", name), zap.Int("dimension", spec.Dimension))
	return nil
}

// DeleteIndex drops the index.
func (x *Index) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	x.forgetHost(name)
	if err := x.control.DeleteIndex(ctx, name); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("delete %s: %w", name, domain.ErrIndexNotFound)
		}
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	return nil
}

func (x *Index) rememberHost(name, host string) {
	x.mu.Lock()
	x.hosts[name] = host
	x.mu.Unlock()
}

func (x *Index) forgetHost(name string) {
	x.mu.Lock()
	delete(x.hosts, name)
	x.mu.Unlock()
}

// host resolves and caches the data plane host of an index.
func (x *Index) host(ctx context.Context, name string) (string, error) {
	x.mu.RLock()
	h, ok := x.hosts[name]
	x.mu.RUnlock()
	if ok {
		return h, nil
	}

	idx, err := x.control.DescribeIndex(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s: %w", name, domain.ErrIndexNotFound)
		}
		return "", fmt.Errorf("describe index %s: %w", name, err)
	}
	if idx == nil || idx.Host == "" {
		return "", fmt.Errorf("index %s is not ready", name)
	}
	x.rememberHost(name, idx.Host)
	return idx.Host, nil
}

// withNamespace runs fn on a connection bound to index/namespace.
func (x *Index) withNamespace(ctx context.Context, index, namespace string, fn func(context.Context, dataPlane) error) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	host, err := x.host(ctx, index)
	if err != nil {
		return err
	}
	conn, err := x.connect(host, namespace)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", index, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			x.logger.Debug("close pinecone connection", zap.String("index", index), zap.Error(err))
		}
	}()

	err = fn(ctx, conn)
	if err != nil && isNotFound(err) {
		// The cached host belonged to a deleted index.
		x.forgetHost(index)
		return fmt.Errorf("%w: %v", domain.ErrIndexNotFound, err)
	}
	return err
}

func toMetadata(m map[string]string) (*structpb.Struct, error) {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return structpb.NewStruct(fields)
}

func fromMetadata(s *structpb.Struct) map[string]string {
	out := make(map[string]string, len(s.GetFields()))
	for k, v := range s.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			out[k] = kind.StringValue
		case *structpb.Value_NumberValue:
			out[k] = fmt.Sprintf("%g", kind.NumberValue)
		case *structpb.Value_BoolValue:
			out[k] = fmt.Sprintf("%t", kind.BoolValue)
		}
	}
	return out
}

// Upsert writes vectors into a namespace.
func (x *Index) Upsert(ctx context.Context, index, namespace string, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	in := make([]*pinecone.Vector, len(vectors))
	for i, v := range vectors {
		md, err := toMetadata(v.Metadata)
		if err != nil {
			return fmt.Errorf("metadata of %s: %w", v.ID, err)
		}
		in[i] = &pinecone.Vector{Id: v.ID, Values: v.Values, Metadata: md}
	}

	return x.withNamespace(ctx, index, namespace, func(ctx context.Context, conn dataPlane) error {
		if _, err := conn.UpsertVectors(ctx, in); err != nil {
			return fmt.Errorf("upsert into %s/%s: %w", index, namespace, err)
		}
		return nil
	})
}

// DeleteNamespace removes every vector of a namespace.
func (x *Index) DeleteNamespace(ctx context.Context, index, namespace string) error {
	return x.withNamespace(ctx, index, namespace, func(ctx context.Context, conn dataPlane) error {
		err := conn.DeleteAllVectorsInNamespace(ctx)
		// Pinecone reports a missing namespace as 404.
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("delete namespace %s/%s: %w", index, namespace, err)
		}
		return nil
	})
}

// ListNamespaces reads the namespaces from the index statistics.
func (x *Index) ListNamespaces(ctx context.Context, index string) ([]string, error) {
	var names []string
	err := x.withNamespace(ctx, index, "", func(ctx context.Context, conn dataPlane) error {
		stats, err := conn.DescribeIndexStats(ctx)
		if err != nil {
			return fmt.Errorf("describe stats of %s: %w", index, err)
		}
		names = make([]string, 0, len(stats.Namespaces))
		for ns, summary := range stats.Namespaces {
			if summary != nil && summary.VectorCount > 0 {
				names = append(names, ns)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Query searches one namespace.
func (x *Index) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error) {
	if topK <= 0 {
		return []*domain.VectorMatch{}, nil
	}

	var matches []*domain.VectorMatch
	err := x.withNamespace(ctx, index, namespace, func(ctx context.Context, conn dataPlane) error {
		res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
			Vector:          vector,
			TopK:            uint32(topK),
			IncludeMetadata: true,
		})
		if err != nil {
			return fmt.Errorf("query %s/%s: %w", index, namespace, err)
		}
		matches = make([]*domain.VectorMatch, 0, len(res.Matches))
		for _, m := range res.Matches {
			if m == nil || m.Vector == nil {
				continue
			}
			md := fromMetadata(m.Vector.Metadata)
			matches = append(matches, &domain.VectorMatch{
				ID:       m.Vector.Id,
				Score:    float64(m.Score),
				Text:     md[domain.MetadataText],
				Metadata: md,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// HealthCheck lists indexes to verify the API key and reachability.
func (x *Index) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	if _, err := x.control.ListIndexes(ctx); err != nil {
		return fmt.Errorf("pinecone health check: %w", err)
	}
	return nil
}

// Close is a no-op; data plane connections are closed after every call.
func (x *Index) Close() error {
	return nil
}
