package domain

import "sort"

// Retrieval defaults.
const (
	DefaultThreshold = 0.25
	DefaultTopK      = 5
)

// RetrievalMatch tags a vector match with the collection and document it came from.
type RetrievalMatch struct {
	CollectionID int64        `json:"collection_id"`
	DocumentID   int64        `json:"document_id"`
	Match        *VectorMatch `json:"match"`
}

// SearchRequest asks for the raw retrieval matches of a query.
type SearchRequest struct {
	Query          string  `json:"query"`
	CollectionIDs  []int64 `json:"collection_ids"`
	AllCollections bool    `json:"all_collections"`
	Threshold      float64 `json:"threshold,omitempty"`
}

// SearchResult is the answer to a SearchRequest.
type SearchResult struct {
	Query         string            `json:"query"`
	CollectionIDs []int64           `json:"collection_ids"`
	Matches       []*RetrievalMatch `json:"matches"`
	TotalCount    int               `json:"total_count"`
}

// SortMatches orders matches by collection, document, then descending score.
// The order only makes output reproducible; it is not a relevance ranking.
func SortMatches(matches []*RetrievalMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.CollectionID != b.CollectionID {
			return a.CollectionID < b.CollectionID
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.Match.Score > b.Match.Score
	})
}
