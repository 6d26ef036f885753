package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
)

func newTestAuthService() (*mocks.MockUserStore, *mocks.MockSessionStore, *mocks.MockAuthAdapter, *authService) {
	userStore := mocks.NewMockUserStore()
	sessionStore := mocks.NewMockSessionStore()
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(userStore, sessionStore, authAdapter, DefaultAuthConfig()).(*authService)
	return userStore, sessionStore, authAdapter, svc
}

func createTestUser(t *testing.T, store *mocks.MockUserStore, username, password string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: password, // Mock hasher uses plain text comparison
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestAuthService_Authenticate(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	createTestUser(t, userStore, "alice", "password123")

	tests := []struct {
		name    string
		req     domain.LoginRequest
		wantErr error
	}{
		{
			name:    "valid credentials",
			req:     domain.LoginRequest{Username: "alice", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "empty username",
			req:     domain.LoginRequest{Username: "", Password: "password123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty password",
			req:     domain.LoginRequest{Username: "alice", Password: ""},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "wrong password",
			req:     domain.LoginRequest{Username: "alice", Password: "wrongpassword"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "unknown user",
			req:     domain.LoginRequest{Username: "mallory", Password: "password123"},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Authenticate(context.Background(), tt.req)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.AccessToken == "" {
				t.Error("expected access token to be generated")
			}
			if resp.RefreshToken == "" {
				t.Error("expected refresh token to be generated")
			}
			if resp.TokenType != domain.TokenTypeBearer {
				t.Errorf("expected token type bearer, got %s", resp.TokenType)
			}
			if resp.User.Username != tt.req.Username {
				t.Errorf("expected username %s, got %s", tt.req.Username, resp.User.Username)
			}
		})
	}

	if sessionStore.Count() != 1 {
		t.Errorf("expected 1 session, got %d", sessionStore.Count())
	}
}

func TestAuthService_Authenticate_UsesConfiguredTTL(t *testing.T) {
	userStore := mocks.NewMockUserStore()
	svc := NewAuthService(userStore, mocks.NewMockSessionStore(), mocks.NewMockAuthAdapter(), AuthConfig{
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	createTestUser(t, userStore, "bob", "secret1")

	resp, err := svc.Authenticate(context.Background(), domain.LoginRequest{Username: "bob", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d := time.Until(resp.ExpiresAt); d > 10*time.Minute || d < 9*time.Minute {
		t.Errorf("unexpected access expiry in %v", d)
	}
	if d := time.Until(resp.RefreshExpiresAt); d > 24*time.Hour || d < 23*time.Hour {
		t.Errorf("unexpected refresh expiry in %v", d)
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	userStore, sessionStore, authAdapter, svc := newTestAuthService()
	createTestUser(t, userStore, "carol", "pw12345")
	ctx := context.Background()

	tests := []struct {
		name      string
		setupFunc func() string
		wantErr   error
	}{
		{
			name:      "empty token",
			setupFunc: func() string { return "" },
			wantErr:   domain.ErrTokenInvalid,
		},
		{
			name:      "malformed token",
			setupFunc: func() string { return "not!valid@base64#" },
			wantErr:   domain.ErrTokenInvalid,
		},
		{
			name: "expired token",
			setupFunc: func() string {
				token, _ := authAdapter.GenerateToken(&domain.TokenClaims{
					UserID:    1,
					SessionID: "session-123",
					IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
					ExpiresAt: time.Now().Add(-1 * time.Hour).Unix(),
				})
				return token
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "session not found",
			setupFunc: func() string {
				token, _ := authAdapter.GenerateToken(&domain.TokenClaims{
					UserID:    1,
					SessionID: "non-existent-session",
					IssuedAt:  time.Now().Unix(),
					ExpiresAt: time.Now().Add(time.Hour).Unix(),
				})
				return token
			},
			wantErr: domain.ErrSessionNotFound,
		},
		{
			name: "session expired",
			setupFunc: func() string {
				token, _ := authAdapter.GenerateToken(&domain.TokenClaims{
					UserID:    1,
					SessionID: "session-expired",
					IssuedAt:  time.Now().Unix(),
					ExpiresAt: time.Now().Add(time.Hour).Unix(),
				})
				_ = sessionStore.Save(ctx, &domain.Session{
					ID:        "session-expired",
					UserID:    1,
					Token:     token,
					ExpiresAt: time.Now().Add(-1 * time.Minute),
				})
				return token
			},
			wantErr: domain.ErrTokenExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, tt.setupFunc())
			if err != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("valid token", func(t *testing.T) {
		resp, err := svc.Authenticate(ctx, domain.LoginRequest{Username: "carol", Password: "pw12345"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}

		authCtx, err := svc.ValidateToken(ctx, resp.AccessToken)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if authCtx.UserID != resp.User.ID {
			t.Errorf("expected UserID %d, got %d", resp.User.ID, authCtx.UserID)
		}
		if authCtx.Username != "carol" {
			t.Errorf("expected username carol, got %s", authCtx.Username)
		}
		if authCtx.SessionID == "" {
			t.Error("expected session id")
		}
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	user := createTestUser(t, userStore, "dave", "password123")
	ctx := context.Background()

	login, err := svc.Authenticate(ctx, domain.LoginRequest{Username: "dave", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatal("expected new tokens")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected refresh token rotation")
	}

	authCtx, err := svc.ValidateToken(ctx, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("new access token should validate: %v", err)
	}
	if authCtx.UserID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, authCtx.UserID)
	}

	// The rotated-out session is gone
	if _, err := svc.ValidateToken(ctx, login.AccessToken); err != domain.ErrSessionNotFound {
		t.Errorf("expected old access token to be rejected, got %v", err)
	}
	if _, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: login.RefreshToken}); err != domain.ErrTokenInvalid {
		t.Errorf("expected reused refresh token to be rejected, got %v", err)
	}
	if sessionStore.Count() != 1 {
		t.Errorf("expected 1 session after rotation, got %d", sessionStore.Count())
	}
}

func TestAuthService_RefreshToken_ConcurrentReuse(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	createTestUser(t, userStore, "gina", "password123")
	ctx := context.Background()

	login, err := svc.Authenticate(ctx, domain.LoginRequest{Username: "gina", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: login.RefreshToken})
			switch {
			case err == nil:
				succeeded.Add(1)
			case !errors.Is(err, domain.ErrTokenInvalid):
				t.Errorf("unexpected refresh error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Errorf("expected exactly one refresh to succeed, got %d", succeeded.Load())
	}
	if sessionStore.Count() != 1 {
		t.Errorf("expected 1 session after concurrent refresh, got %d", sessionStore.Count())
	}
}

func TestAuthService_RefreshToken_Errors(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	user := createTestUser(t, userStore, "erin", "password123")
	ctx := context.Background()

	_ = sessionStore.Save(ctx, &domain.Session{
		ID:               "old",
		UserID:           user.ID,
		Token:            "old-token",
		RefreshToken:     "stale-refresh",
		ExpiresAt:        time.Now().Add(-2 * time.Hour),
		RefreshExpiresAt: time.Now().Add(-1 * time.Hour),
	})

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", domain.ErrTokenInvalid},
		{"unknown", "nope", domain.ErrTokenInvalid},
		{"expired", "stale-refresh", domain.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: tt.token})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	createTestUser(t, userStore, "frank", "password123")
	ctx := context.Background()

	resp, err := svc.Authenticate(ctx, domain.LoginRequest{Username: "frank", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, resp.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessionStore.Count() != 0 {
		t.Errorf("expected no sessions, got %d", sessionStore.Count())
	}
	if _, err := svc.ValidateToken(ctx, resp.AccessToken); err == nil {
		t.Error("expected token to be rejected after logout")
	}

	// Logging out garbage is a no-op
	if err := svc.Logout(ctx, "garbage"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthService_LogoutAll(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	user := createTestUser(t, userStore, "grace", "password123")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, domain.LoginRequest{Username: "grace", Password: "password123"}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	if err := svc.LogoutAll(ctx, user.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if sessionStore.Count() != 0 {
		t.Errorf("expected no sessions, got %d", sessionStore.Count())
	}
}
