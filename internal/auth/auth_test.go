package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"berater-api/internal/kv"
)

func testService() (*Service, *kv.MemoryStore) {
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger, bcrypt.MinCost), store
}

func TestSignupAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	user, token, err := svc.Signup(ctx, "Maria@Example.com", "supersecret", "Maria", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "maria@example.com" {
		t.Fatalf("email not normalised: %s", user.Email)
	}
	if user.Role != "user" {
		t.Fatalf("expected default role user, got %s", user.Role)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	identity, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.UserID != user.ID {
		t.Fatalf("expected identity for %s, got %s", user.ID, identity.UserID)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	if _, _, err := svc.Signup(ctx, "a@example.com", "supersecret", "A", ""); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, _, err := svc.Signup(ctx, "a@example.com", "othersecret", "B", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	cases := []struct {
		name     string
		email    string
		password string
		userName string
	}{
		{"bad email", "not-an-email", "supersecret", "A"},
		{"short password", "a@example.com", "short", "A"},
		{"missing name", "a@example.com", "supersecret", ""},
	}
	for _, tc := range cases {
		if _, _, err := svc.Signup(ctx, tc.email, tc.password, tc.userName, ""); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%s: expected ErrInvalidPayload, got %v", tc.name, err)
		}
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	if _, _, err := svc.Signup(ctx, "a@example.com", "supersecret", "A", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}

	user, token, err := svc.Login(ctx, "a@example.com", "supersecret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user == nil || token == "" {
		t.Fatal("expected user and token")
	}

	if _, _, err := svc.Login(ctx, "a@example.com", "wrongsecret"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "unknown@example.com", "supersecret"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveRejectsUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	if _, err := svc.Resolve(ctx, "bogus"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Resolve(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
