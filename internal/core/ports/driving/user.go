package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// UserService manages user accounts
type UserService interface {
	// Register creates a new account.
	// Returns ErrAlreadyExists when the username or email is taken.
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id int64) (*domain.User, error)
}
