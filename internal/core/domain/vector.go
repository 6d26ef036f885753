package domain

// Metadata keys stored alongside every paragraph vector.
const (
	MetadataText         = "text"
	MetadataCollectionID = "collection_id"
	MetadataDocumentID   = "document_id"
	MetadataParagraph    = "paragraph"
)

// DistanceMetric names the similarity function of an index.
type DistanceMetric string

const (
	MetricCosine     DistanceMetric = "cosine"
	MetricDotProduct DistanceMetric = "dotproduct"
	MetricEuclidean  DistanceMetric = "euclidean"
)

// IndexSpec describes how a collection index is provisioned.
type IndexSpec struct {
	Dimension int            `json:"dimension"`
	Metric    DistanceMetric `json:"metric"`
	Cloud     string         `json:"cloud,omitempty"`
	Region    string         `json:"region,omitempty"`
}

// DefaultIndexSpec matches all-MiniLM-L6-v2 embeddings on a serverless index.
func DefaultIndexSpec() IndexSpec {
	return IndexSpec{
		Dimension: 384,
		Metric:    MetricCosine,
		Cloud:     "aws",
		Region:    "us-east-1",
	}
}

// Vector is one entry written to a namespace.
type Vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// VectorMatch is one nearest-neighbour hit returned by a namespace query.
type VectorMatch struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
