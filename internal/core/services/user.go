package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure userService implements UserService
var _ driving.UserService = (*userService)(nil)

// userService implements the UserService interface
type userService struct {
	userStore   driven.UserStore
	authAdapter driven.AuthAdapter
}

// NewUserService creates a new UserService
func NewUserService(userStore driven.UserStore, authAdapter driven.AuthAdapter) driving.UserService {
	return &userService{
		userStore:   userStore,
		authAdapter: authAdapter,
	}
}

// Register creates a new account
func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateRegisterRequest(req); err != nil {
		return nil, err
	}

	// Check early so the common case never reaches the unique constraint
	if existing, _ := s.userStore.GetByUsername(ctx, req.Username); existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	if existing, _ := s.userStore.GetByEmail(ctx, req.Email); existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	passwordHash, err := s.authAdapter.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Get retrieves a user by ID
func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.userStore.Get(ctx, id)
}

func validateRegisterRequest(req domain.RegisterRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return domain.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return domain.ErrInvalidInput
	}
	if len(req.Password) < domain.MinPasswordLength {
		return domain.ErrInvalidInput
	}
	return nil
}
