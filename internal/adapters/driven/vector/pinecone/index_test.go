package pinecone

import (
	"context"
	"errors"
	"testing"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type fakeControl struct {
	indexes   map[string]string // name -> host
	created   *pinecone.CreateServerlessIndexRequest
	describes int
	err       error
}

func (f *fakeControl) CreateServerlessIndex(ctx context.Context, req *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = req
	host := req.Name + ".svc.pinecone.io"
	f.indexes[req.Name] = host
	return &pinecone.Index{Name: req.Name, Host: host}, nil
}

func (f *fakeControl) DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error) {
	f.describes++
	host, ok := f.indexes[name]
	if !ok {
		return nil, errors.New(`{"error":{"code":"NOT_FOUND","message":"Resource ` + name + ` not found"},"status":404}`)
	}
	return &pinecone.Index{Name: name, Host: host}, nil
}

func (f *fakeControl) DeleteIndex(ctx context.Context, name string) error {
	if _, ok := f.indexes[name]; !ok {
		return errors.New("failed to delete index: 404 Not Found")
	}
	delete(f.indexes, name)
	return nil
}

func (f *fakeControl) ListIndexes(ctx context.Context) ([]*pinecone.Index, error) {
	return nil, f.err
}

type fakeConn struct {
	host, namespace string
	store           *fakeStore
	closed          bool
}

type fakeStore struct {
	vectors  map[string]map[string][]*pinecone.Vector // namespace -> vectors
	queryErr error
	queries  []*pinecone.QueryByVectorValuesRequest
}

func (c *fakeConn) UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error) {
	c.store.vectors[c.namespace] = map[string][]*pinecone.Vector{"": in}
	return uint32(len(in)), nil
}

func (c *fakeConn) DeleteAllVectorsInNamespace(ctx context.Context) error {
	if _, ok := c.store.vectors[c.namespace]; !ok {
		return status.Error(codes.NotFound, "Namespace not found")
	}
	delete(c.store.vectors, c.namespace)
	return nil
}

func (c *fakeConn) QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	c.store.queries = append(c.store.queries, in)
	if c.store.queryErr != nil {
		return nil, c.store.queryErr
	}
	res := &pinecone.QueryVectorsResponse{}
	for i, v := range c.store.vectors[c.namespace][""] {
		res.Matches = append(res.Matches, &pinecone.ScoredVector{Vector: v, Score: 0.9 - float32(i)*0.1})
	}
	return res, nil
}

func (c *fakeConn) DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	res := &pinecone.DescribeIndexStatsResponse{Namespaces: map[string]*pinecone.NamespaceSummary{}}
	for ns, v := range c.store.vectors {
		res.Namespaces[ns] = &pinecone.NamespaceSummary{VectorCount: uint32(len(v[""]))}
	}
	res.Namespaces["empty"] = &pinecone.NamespaceSummary{VectorCount: 0}
	return res, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestIndex() (*Index, *fakeControl, *fakeStore, *[]*fakeConn) {
	control := &fakeControl{indexes: map[string]string{}}
	store := &fakeStore{vectors: map[string]map[string][]*pinecone.Vector{}}
	var conns []*fakeConn
	connect := func(host, namespace string) (dataPlane, error) {
		c := &fakeConn{host: host, namespace: namespace, store: store}
		conns = append(conns, c)
		return c, nil
	}
	return newIndex(control, connect, 0, nil), control, store, &conns
}

func TestCreateIndex(t *testing.T) {
	x, control, _, _ := newTestIndex()

	spec := domain.DefaultIndexSpec()
	require.NoError(t, x.CreateIndex(context.Background(), "collection-1", spec))

	req := control.created
	require.NotNil(t, req)
	assert.Equal(t, "collection-1", req.Name)
	assert.Equal(t, int32(384), req.Dimension)
	assert.Equal(t, pinecone.Cosine, req.Metric)
	assert.Equal(t, pinecone.Cloud("aws"), req.Cloud)
	assert.Equal(t, "us-east-1", req.Region)
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	x, control, _, _ := newTestIndex()
	control.err = errors.New("failed to create index: 409 Conflict: index already exists")

	assert.NoError(t, x.CreateIndex(context.Background(), "collection-1", domain.DefaultIndexSpec()))
}

func TestUpsertQueryRoundTrip(t *testing.T) {
	x, _, store, conns := newTestIndex()
	ctx := context.Background()
	require.NoError(t, x.CreateIndex(ctx, "collection-1", domain.DefaultIndexSpec()))

	err := x.Upsert(ctx, "collection-1", "document-1", []domain.Vector{
		{ID: "paragraph-0", Values: []float32{1, 0}, Metadata: map[string]string{domain.MetadataText: "first"}},
		{ID: "paragraph-1", Values: []float32{0, 1}, Metadata: map[string]string{domain.MetadataText: "second"}},
	})
	require.NoError(t, err)

	matches, err := x.Query(ctx, "collection-1", "document-1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "paragraph-0", matches[0].ID)
	assert.Equal(t, "first", matches[0].Text)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-6)

	require.Len(t, store.queries, 1)
	assert.Equal(t, uint32(5), store.queries[0].TopK)
	assert.True(t, store.queries[0].IncludeMetadata)

	for _, c := range *conns {
		assert.Equal(t, "collection-1.svc.pinecone.io", c.host)
		assert.True(t, c.closed, "connections are closed after use")
	}
}

func TestListNamespaces(t *testing.T) {
	x, _, _, _ := newTestIndex()
	ctx := context.Background()
	require.NoError(t, x.CreateIndex(ctx, "collection-1", domain.DefaultIndexSpec()))
	require.NoError(t, x.Upsert(ctx, "collection-1", "document-4", []domain.Vector{{ID: "paragraph-0", Values: []float32{1}}}))

	names, err := x.ListNamespaces(ctx, "collection-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"document-4"}, names, "empty namespaces are skipped")
}

func TestDeleteNamespace_Missing(t *testing.T) {
	x, _, _, _ := newTestIndex()
	ctx := context.Background()
	require.NoError(t, x.CreateIndex(ctx, "collection-1", domain.DefaultIndexSpec()))

	assert.NoError(t, x.DeleteNamespace(ctx, "collection-1", "document-9"))
}

func TestMissingIndex(t *testing.T) {
	x, control, _, _ := newTestIndex()
	ctx := context.Background()

	_, err := x.ListNamespaces(ctx, "collection-7")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	_, err = x.Query(ctx, "collection-7", "document-1", []float32{1}, 5)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.ErrorIs(t, x.DeleteIndex(ctx, "collection-7"), domain.ErrIndexNotFound)
	assert.Equal(t, 2, control.describes)
}

func TestHostIsCached(t *testing.T) {
	x, control, _, _ := newTestIndex()
	ctx := context.Background()
	control.indexes["collection-2"] = "collection-2.svc.pinecone.io"

	for i := 0; i < 3; i++ {
		_, err := x.ListNamespaces(ctx, "collection-2")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, control.describes)

	require.NoError(t, x.DeleteIndex(ctx, "collection-2"))
	_, err := x.ListNamespaces(ctx, "collection-2")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestDataPlaneNotFound(t *testing.T) {
	x, control, store, _ := newTestIndex()
	ctx := context.Background()
	control.indexes["collection-3"] = "gone.svc.pinecone.io"
	store.queryErr = status.Error(codes.NotFound, "index gone")

	_, err := x.Query(ctx, "collection-3", "document-1", []float32{1}, 5)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestFromMetadata(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"text":      "hello",
		"paragraph": float64(3),
		"flag":      true,
	})
	require.NoError(t, err)

	got := fromMetadata(s)
	assert.Equal(t, map[string]string{"text": "hello", "paragraph": "3", "flag": "true"}, got)
	assert.Empty(t, fromMetadata(nil))
}
