package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChatService answers questions from the user's documents
type ChatService interface {
	// Query retrieves context, generates an answer and records the exchange
	Query(ctx context.Context, userID int64, req domain.ChatRequest) (*domain.ChatResponse, error)

	// History returns the user's exchanges in insertion order
	History(ctx context.Context, userID int64) ([]*domain.ChatHistory, error)
}
