package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChatHistoryStore is the append-only log of chat exchanges (PostgreSQL)
type ChatHistoryStore interface {
	// Append inserts a history row and sets its ID and CreatedAt
	Append(ctx context.Context, entry *domain.ChatHistory) error

	// ListByUser returns the user's rows in insertion order
	ListByUser(ctx context.Context, userID int64) ([]*domain.ChatHistory, error)
}
