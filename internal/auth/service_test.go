package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/docflow-server/internal/store"
	"github.com/vovakirdan/docflow-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "Alice", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice@example.com", "  ", "password123"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice@example.com", "Alice", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_NormalizesEmailAndRejectsDuplicates(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Alice@Example.com ", "Alice", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != store.RoleUser {
		t.Fatalf("expected role user, got %s", user.Role)
	}

	if _, err := svc.Register(ctx, "alice@example.com", "Alice", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob@example.com", "Bob", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "bob@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	token, user, err := svc.Login(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID || claims.IsAdmin() {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Promote(ctx, "bob@example.com"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	token, _, err = svc.Login(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("login after promote: %v", err)
	}
	claims, _ = svc.ValidateToken(token)
	if !claims.IsAdmin() {
		t.Fatalf("expected admin claims after promotion")
	}
}

func TestValidateTokenRejectsForeignAudience(t *testing.T) {
	user := &store.User{ID: "u1", Email: "u1@example.com", Role: store.RoleUser}
	token, err := GenerateToken(&JWTConfig{Secret: []byte("s"), Issuer: "test", Audience: "other", TTL: time.Minute}, user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(&JWTConfig{Secret: []byte("s"), Issuer: "test", Audience: "test"}, token); err == nil {
		t.Fatalf("expected audience mismatch error")
	}
}
