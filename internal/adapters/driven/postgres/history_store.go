package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChatHistoryStore = (*ChatHistoryStore)(nil)

// ChatHistoryStore implements driven.ChatHistoryStore using PostgreSQL.
// Rows are never updated or deleted except by user cascade.
type ChatHistoryStore struct {
	db *DB
}

// NewChatHistoryStore creates a new ChatHistoryStore
func NewChatHistoryStore(db *DB) *ChatHistoryStore {
	return &ChatHistoryStore{db: db}
}

type historyRow struct {
	ID            int64         `db:"id"`
	UserID        int64         `db:"user_id"`
	Query         string        `db:"query"`
	CollectionIDs pq.Int64Array `db:"collection_ids"`
	BotResponse   string        `db:"bot_response"`
	CreatedAt     time.Time     `db:"created_at"`
}

func (r *historyRow) toDomain() *domain.ChatHistory {
	ids := []int64(r.CollectionIDs)
	if ids == nil {
		ids = []int64{}
	}
	return &domain.ChatHistory{
		ID:            r.ID,
		UserID:        r.UserID,
		Query:         r.Query,
		CollectionIDs: ids,
		BotResponse:   r.BotResponse,
		CreatedAt:     r.CreatedAt,
	}
}

// Append inserts a history row
func (s *ChatHistoryStore) Append(ctx context.Context, entry *domain.ChatHistory) error {
	query := `
		INSERT INTO chat_histories (user_id, query, collection_ids, bot_response)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ids := entry.CollectionIDs
	if ids == nil {
		ids = []int64{}
	}
	err := s.db.QueryRowxContext(ctx, query, entry.UserID, entry.Query, pq.Int64Array(ids), entry.BotResponse).
		Scan(&entry.ID, &entry.CreatedAt)
	return translateError(err)
}

// ListByUser returns the user's rows in insertion order
func (s *ChatHistoryStore) ListByUser(ctx context.Context, userID int64) ([]*domain.ChatHistory, error) {
	query := `
		SELECT id, user_id, query, collection_ids, bot_response, created_at
		FROM chat_histories
		WHERE user_id = $1
		ORDER BY id
	`

	var rows []historyRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	entries := make([]*domain.ChatHistory, len(rows))
	for i := range rows {
		entries[i] = rows[i].toDomain()
	}
	return entries, nil
}
