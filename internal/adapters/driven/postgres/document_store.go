package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

type documentRow struct {
	ID           int64     `db:"id"`
	Title        string    `db:"title"`
	Content      string    `db:"content"`
	CollectionID int64     `db:"collection_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *documentRow) toDomain() *domain.Document {
	return &domain.Document{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		CollectionID: r.CollectionID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const documentColumns = `id, title, content, collection_id, created_at, updated_at`

// Create inserts a document. A missing collection is ErrNotFound and a second
// untitled placeholder in the collection is ErrBlankDocumentExists.
func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (title, content, collection_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := checkBlank(ctx, tx, doc); err != nil {
			return err
		}
		err := tx.QueryRowxContext(ctx, query, doc.Title, doc.Content, doc.CollectionID).
			Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
		return translateError(err)
	})
}

// checkBlank locks the collection row so concurrent writers to the same
// collection serialize, then rejects a second untitled placeholder.
func checkBlank(ctx context.Context, tx *sqlx.Tx, doc *domain.Document) error {
	var locked int64
	err := tx.GetContext(ctx, &locked, `SELECT id FROM collections WHERE id = $1 FOR UPDATE`, doc.CollectionID)
	if err != nil {
		return translateError(err)
	}
	if !doc.IsBlank() {
		return nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE collection_id = $1 AND content = $2 AND id <> $3
		)
	`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, doc.CollectionID, domain.BlankDocumentPlaceholder, doc.ID); err != nil {
		return err
	}
	if exists {
		return domain.ErrBlankDocumentExists
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id int64) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	var row documentRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ListByCollection returns the documents of a collection in creation order
func (s *DocumentStore) ListByCollection(ctx context.Context, collectionID int64) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE collection_id = $1
		ORDER BY id
	`

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, collectionID); err != nil {
		return nil, err
	}

	docs := make([]*domain.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toDomain()
	}
	return docs, nil
}

// Update persists title and content changes under the same blank rule as Create
func (s *DocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	query := `
		UPDATE documents
		SET title = $1, content = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := checkBlank(ctx, tx, doc); err != nil {
			return err
		}
		err := tx.QueryRowxContext(ctx, query, doc.Title, doc.Content, doc.ID).Scan(&doc.UpdatedAt)
		return translateError(err)
	})
}

// Delete removes a document
func (s *DocumentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
