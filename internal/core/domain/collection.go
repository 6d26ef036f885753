package domain

import (
	"fmt"
	"time"
)

// Collection is a user-owned bucket of documents.
// Each collection is backed by exactly one vector index named IndexName(ID).
type Collection struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether the collection belongs to the given user.
func (c *Collection) OwnedBy(userID int64) bool {
	return c.UserID == userID
}

// IndexName returns the vector index name of a collection.
// The format is shared with already provisioned indexes and must not change.
func IndexName(collectionID int64) string {
	return fmt.Sprintf("collection-%d", collectionID)
}

// CollectionScope selects the collections a retrieval runs over.
// All takes precedence over IDs.
type CollectionScope struct {
	All bool    `json:"all"`
	IDs []int64 `json:"ids,omitempty"`
}

// IsEmpty reports whether the scope selects nothing.
func (s CollectionScope) IsEmpty() bool {
	return !s.All && len(s.IDs) == 0
}
