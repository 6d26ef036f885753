package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore implements driven.SessionStore using PostgreSQL.
// Used when Redis is not configured.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

type sessionRow struct {
	ID               string    `db:"id"`
	UserID           int64     `db:"user_id"`
	Token            string    `db:"token"`
	RefreshToken     string    `db:"refresh_token"`
	ExpiresAt        time.Time `db:"expires_at"`
	RefreshExpiresAt time.Time `db:"refresh_expires_at"`
	CreatedAt        time.Time `db:"created_at"`
	UserAgent        string    `db:"user_agent"`
	IPAddress        string    `db:"ip_address"`
}

func (r *sessionRow) toDomain() *domain.Session {
	return &domain.Session{
		ID:               r.ID,
		UserID:           r.UserID,
		Token:            r.Token,
		RefreshToken:     r.RefreshToken,
		ExpiresAt:        r.ExpiresAt,
		RefreshExpiresAt: r.RefreshExpiresAt,
		CreatedAt:        r.CreatedAt,
		UserAgent:        r.UserAgent,
		IPAddress:        r.IPAddress,
	}
}

const sessionColumns = `id, user_id, token, refresh_token, expires_at, refresh_expires_at, created_at, user_agent, ip_address`

// Save stores a session
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (:id, :user_id, :token, :refresh_token, :expires_at, :refresh_expires_at, :created_at, :user_agent, :ip_address)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			refresh_expires_at = EXCLUDED.refresh_expires_at,
			user_agent = EXCLUDED.user_agent,
			ip_address = EXCLUDED.ip_address
	`

	row := sessionRow{
		ID:               session.ID,
		UserID:           session.UserID,
		Token:            session.Token,
		RefreshToken:     session.RefreshToken,
		ExpiresAt:        session.ExpiresAt,
		RefreshExpiresAt: session.RefreshExpiresAt,
		CreatedAt:        session.CreatedAt,
		UserAgent:        session.UserAgent,
		IPAddress:        session.IPAddress,
	}
	_, err := s.db.NamedExecContext(ctx, query, row)
	return translateError(err)
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.getBy(ctx, "id", id)
}

// GetByToken retrieves a session by access token value
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.getBy(ctx, "token", token)
}

// GetByRefreshToken retrieves a session by refresh token value
func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.getBy(ctx, "refresh_token", refreshToken)
}

func (s *SessionStore) getBy(ctx context.Context, column, value string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + column + ` = $1`

	var row sessionRow
	if err := s.db.GetContext(ctx, &row, query, value); err != nil {
		return nil, translateError(err)
	}
	return row.toDomain(), nil
}

// ConsumeRefreshToken deletes the session holding refreshToken and returns it
func (s *SessionStore) ConsumeRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	query := `DELETE FROM sessions WHERE refresh_token = $1 RETURNING ` + sessionColumns

	var row sessionRow
	if err := s.db.GetContext(ctx, &row, query, refreshToken); err != nil {
		if err = translateError(err); errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// Delete deletes a session
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteByToken deletes a session by token
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteByUser deletes all sessions for a user (logout everywhere)
func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// ListByUser lists all sessions whose refresh token is still valid
func (s *SessionStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND refresh_expires_at > NOW()
		ORDER BY created_at DESC
	`

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	sessions := make([]*domain.Session, len(rows))
	for i := range rows {
		sessions[i] = rows[i].toDomain()
	}
	return sessions, nil
}

// DeleteExpired removes sessions whose refresh token has expired.
// Returns the number of removed sessions.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
