package pgvector

import (
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestDistanceOps(t *testing.T) {
	tests := []struct {
		metric domain.DistanceMetric
		op     string
		score  string
	}{
		{domain.MetricCosine, "<=>", "1 - (embedding <=> $1)"},
		{"", "<=>", "1 - (embedding <=> $1)"},
		{domain.MetricDotProduct, "<#>", "-(embedding <#> $1)"},
		{domain.MetricEuclidean, "<->", "1 / (1 + (embedding <-> $1))"},
	}

	for _, tt := range tests {
		op, score := distanceOps(tt.metric)
		if op != tt.op || score != tt.score {
			t.Errorf("distanceOps(%q) = %q, %q; want %q, %q", tt.metric, op, score, tt.op, tt.score)
		}
	}
}

func TestSchema(t *testing.T) {
	for _, want := range []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		"CREATE TABLE IF NOT EXISTS vector_indexes",
		"REFERENCES vector_indexes(name) ON DELETE CASCADE",
		"PRIMARY KEY (index_name, namespace, vector_id)",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
