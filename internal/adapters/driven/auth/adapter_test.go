package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestClaims() *domain.TokenClaims {
	now := time.Now()
	return &domain.TokenClaims{
		UserID:    42,
		Username:  "robel",
		Email:     "robel@example.com",
		SessionID: "session-789",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter("test-secret")
	if string(adapter.jwtSecret) != "test-secret" {
		t.Error("expected jwt secret to be set")
	}
	if adapter.bcryptCost != bcrypt.DefaultCost {
		t.Errorf("bcrypt cost = %d, want default", adapter.bcryptCost)
	}
}

func TestHashPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", bcrypt.MinCost)

	hash1, err := adapter.HashPassword("mypassword")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	hash2, _ := adapter.HashPassword("mypassword")

	if hash1 == "mypassword" {
		t.Error("hash should not equal plaintext password")
	}
	if !strings.HasPrefix(hash1, "$2a$") {
		t.Errorf("expected bcrypt hash, got %q", hash1)
	}
	if hash1 == hash2 {
		t.Error("expected different hashes for same password (salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", bcrypt.MinCost)
	hash, _ := adapter.HashPassword("correctpassword")

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct", "correctpassword", hash, true},
		{"wrong", "wrongpassword", hash, false},
		{"empty", "", hash, false},
		{"invalid hash", "correctpassword", "not-a-valid-hash", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToken_RoundTrip(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")
	claims := newTestClaims()

	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected a three part JWT, got %q", token)
	}

	parsed, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if *parsed != *claims {
		t.Errorf("ParseToken() = %+v, want %+v", parsed, claims)
	}
}

func TestToken_RegisteredClaims(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")
	token, _ := adapter.GenerateToken(newTestClaims())

	var jc jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &jc); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if jc.Issuer != Issuer || jc.Subject != "42" || jc.ID != "session-789" {
		t.Errorf("registered claims = iss %q sub %q jti %q", jc.Issuer, jc.Subject, jc.ID)
	}
}

func TestParseToken_Expired(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")
	claims := newTestClaims()
	claims.IssuedAt = time.Now().Add(-2 * time.Hour).Unix()
	claims.ExpiresAt = time.Now().Add(-time.Hour).Unix()

	token, _ := adapter.GenerateToken(claims)
	_, err := adapter.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("ParseToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	sign := func(method jwt.SigningMethod, key any, jc jwtClaims) string {
		s, err := jwt.NewWithClaims(method, jc).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func() jwtClaims {
		return jwtClaims{
			Username: "robel",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				Subject:   "42",
				ID:        "session-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	otherSecret, _ := NewAdapter("other-secret").GenerateToken(newTestClaims())

	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	badSubject := valid()
	badSubject.Subject = "robel"
	noSession := valid()
	noSession.ID = ""
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not.a.jwt"},
		{"empty", ""},
		{"wrong secret", otherSecret},
		{"alg none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())},
		{"HS512", sign(jwt.SigningMethodHS512, []byte("test-jwt-secret"), valid())},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte("test-jwt-secret"), wrongIssuer)},
		{"non numeric subject", sign(jwt.SigningMethodHS256, []byte("test-jwt-secret"), badSubject)},
		{"missing session", sign(jwt.SigningMethodHS256, []byte("test-jwt-secret"), noSession)},
		{"missing expiry", sign(jwt.SigningMethodHS256, []byte("test-jwt-secret"), noExpiry)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := adapter.ParseToken(tt.token)
			if !errors.Is(err, domain.ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
			if claims != nil {
				t.Errorf("ParseToken() claims = %+v, want nil", claims)
			}
		})
	}
}

func BenchmarkParseToken(b *testing.B) {
	adapter := NewAdapter("test-jwt-secret")
	token, _ := adapter.GenerateToken(newTestClaims())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.ParseToken(token)
	}
}
