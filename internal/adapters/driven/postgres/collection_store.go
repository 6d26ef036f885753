package postgres

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore implements driven.CollectionStore using PostgreSQL
type CollectionStore struct {
	db *DB
}

// NewCollectionStore creates a new CollectionStore
func NewCollectionStore(db *DB) *CollectionStore {
	return &CollectionStore{db: db}
}

type collectionRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	UserID      int64     `db:"user_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *collectionRow) toDomain() *domain.Collection {
	return &domain.Collection{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const collectionColumns = `id, name, description, user_id, created_at, updated_at`

// Create inserts a collection
func (s *CollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	query := `
		INSERT INTO collections (name, description, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowxContext(ctx, query, c.Name, c.Description, c.UserID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translateError(err)
}

// Get retrieves a collection by ID
func (s *CollectionStore) Get(ctx context.Context, id int64) (*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`

	var row collectionRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ListByUser returns the user's collections, newest first
func (s *CollectionStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Collection, error) {
	query := `
		SELECT ` + collectionColumns + `
		FROM collections
		WHERE user_id = $1
		ORDER BY id DESC
	`

	var rows []collectionRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	collections := make([]*domain.Collection, len(rows))
	for i := range rows {
		collections[i] = rows[i].toDomain()
	}
	return collections, nil
}

// ListIDsByUser returns the IDs of the user's collections in ascending order
func (s *CollectionStore) ListIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `SELECT id FROM collections WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Update persists name and description changes
func (s *CollectionStore) Update(ctx context.Context, c *domain.Collection) error {
	query := `
		UPDATE collections
		SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := s.db.QueryRowxContext(ctx, query, c.Name, c.Description, c.ID).Scan(&c.UpdatedAt)
	return translateError(err)
}

// Delete removes a collection; its documents go with it (ON DELETE CASCADE)
func (s *CollectionStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
