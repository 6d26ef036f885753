// Package pgvector implements VectorIndex inside PostgreSQL with the
// pgvector extension, for deployments without a hosted vector database.
package pgvector

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	pgv "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

//go:embed schema.sql
var schema string

// Index stores every index as a row of vector_indexes and its vectors in
// vector_entries, keyed by (index, namespace, vector id).
type Index struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New wraps an open database handle.
func New(db *sqlx.DB, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{db: db, logger: logger}
}

// InitSchema creates the extension and tables.
func (x *Index) InitSchema(ctx context.Context) error {
	if _, err := x.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init pgvector schema: %w", err)
	}
	return nil
}

// distanceOps maps a metric to its operator and to a score where larger is
// more similar.
func distanceOps(metric domain.DistanceMetric) (op, score string) {
	switch metric {
	case domain.MetricDotProduct:
		return "<#>", "-(embedding <#> $1)"
	case domain.MetricEuclidean:
		return "<->", "1 / (1 + (embedding <-> $1))"
	default:
		return "<=>", "1 - (embedding <=> $1)"
	}
}

func (x *Index) metric(ctx context.Context, index string) (domain.DistanceMetric, error) {
	var metric string
	err := x.db.GetContext(ctx, &metric, `SELECT metric FROM vector_indexes WHERE name = $1`, index)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", index, domain.ErrIndexNotFound)
	}
	if err != nil {
		return "", err
	}
	return domain.DistanceMetric(metric), nil
}

// CreateIndex registers an index. Existing indexes are kept.
func (x *Index) CreateIndex(ctx context.Context, name string, spec domain.IndexSpec) error {
	metric := spec.Metric
	if metric == "" {
		metric = domain.MetricCosine
	}
	_, err := x.db.ExecContext(ctx, `
		INSERT INTO vector_indexes (name, dimension, metric)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`, name, spec.Dimension, string(metric))
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// DeleteIndex removes the index; its vectors cascade.
func (x *Index) DeleteIndex(ctx context.Context, name string) error {
	result, err := x.db.ExecContext(ctx, `DELETE FROM vector_indexes WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", name, domain.ErrIndexNotFound)
	}
	return nil
}

// Upsert writes vectors in one transaction.
func (x *Index) Upsert(ctx context.Context, index, namespace string, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if _, err := x.metric(ctx, index); err != nil {
		return err
	}

	tx, err := x.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO vector_entries (index_name, namespace, vector_id, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (index_name, namespace, vector_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range vectors {
		metadata, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("metadata of %s: %w", v.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, index, namespace, v.ID, pgv.NewVector(v.Values), metadata); err != nil {
			return fmt.Errorf("upsert %s into %s/%s: %w", v.ID, index, namespace, err)
		}
	}
	return tx.Commit()
}

// DeleteNamespace removes every vector of a namespace.
func (x *Index) DeleteNamespace(ctx context.Context, index, namespace string) error {
	if _, err := x.metric(ctx, index); err != nil {
		return err
	}
	_, err := x.db.ExecContext(ctx,
		`DELETE FROM vector_entries WHERE index_name = $1 AND namespace = $2`, index, namespace)
	if err != nil {
		return fmt.Errorf("delete namespace %s/%s: %w", index, namespace, err)
	}
	return nil
}

// ListNamespaces returns the distinct namespaces of an index.
func (x *Index) ListNamespaces(ctx context.Context, index string) ([]string, error) {
	if _, err := x.metric(ctx, index); err != nil {
		return nil, err
	}
	names := []string{}
	err := x.db.SelectContext(ctx, &names,
		`SELECT DISTINCT namespace FROM vector_entries WHERE index_name = $1 ORDER BY namespace`, index)
	if err != nil {
		return nil, fmt.Errorf("list namespaces of %s: %w", index, err)
	}
	return names, nil
}

type matchRow struct {
	VectorID string  `db:"vector_id"`
	Metadata []byte  `db:"metadata"`
	Score    float64 `db:"score"`
}

// Query runs an exact nearest-neighbour scan over one namespace.
func (x *Index) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]*domain.VectorMatch, error) {
	metric, err := x.metric(ctx, index)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []*domain.VectorMatch{}, nil
	}

	op, score := distanceOps(metric)
	query := `
		SELECT vector_id, metadata, ` + score + ` AS score
		FROM vector_entries
		WHERE index_name = $2 AND namespace = $3
		ORDER BY embedding ` + op + ` $1
		LIMIT $4
	`

	var rows []matchRow
	if err := x.db.SelectContext(ctx, &rows, query, pgv.NewVector(vector), index, namespace, topK); err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", index, namespace, err)
	}

	matches := make([]*domain.VectorMatch, 0, len(rows))
	for _, r := range rows {
		metadata := map[string]string{}
		if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
			x.logger.Warn("skipping vector with unreadable metadata",
				zap.String("index", index), zap.String("vector_id", r.VectorID), zap.Error(err))
			continue
		}
		matches = append(matches, &domain.VectorMatch{
			ID:       r.VectorID,
			Score:    r.Score,
			Text:     metadata[domain.MetadataText],
			Metadata: metadata,
		})
	}
	return matches, nil
}

// HealthCheck pings the database.
func (x *Index) HealthCheck(ctx context.Context) error {
	return x.db.PingContext(ctx)
}

// Close is a no-op; the database handle is owned by the caller.
func (x *Index) Close() error {
	return nil
}
