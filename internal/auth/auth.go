// Package auth implements account signup, login and bearer-token resolution.
// The rest of the service only ever consumes Resolve; the signup/login flows
// exist so the directory can run without an external identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"berater-api/internal/kv"
	"berater-api/internal/model"
)

// Errors surfaced to the HTTP boundary.
var (
	ErrUnauthorized   = errors.New("auth: unauthorized")
	ErrEmailTaken     = errors.New("auth: email already registered")
	ErrInvalidPayload = errors.New("auth: invalid payload")
)

const minPasswordLen = 8

// Identity is the verified caller passed into protected operations.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// Service provides identity operations over the key-value store.
type Service struct {
	store      kv.Store
	logger     *slog.Logger
	bcryptCost int
}

type session struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// New creates the auth service. bcryptCost <= 0 selects the library default.
func New(store kv.Store, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:      store,
		logger:     logger.With("component", "auth"),
		bcryptCost: bcryptCost,
	}
}

// Signup registers a new account and returns the stored user with a fresh
// session token. Duplicate emails are rejected.
func (s *Service) Signup(ctx context.Context, email, password, name, role string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if !validEmail(email) {
		return nil, "", fmt.Errorf("%w: invalid email", ErrInvalidPayload)
	}
	if len(password) < minPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidPayload, minPasswordLen)
	}
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}
	if role == "" {
		role = "user"
	}

	// Check-then-act on the email index; acceptable for the single-node scope.
	if _, err := s.store.Get(ctx, model.UserEmailKey(email)); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, kv.ErrNotFound) {
		return nil, "", fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		ID:           model.NewID(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := kv.SetJSON(ctx, s.store, model.UserKey(user.ID), user); err != nil {
		return nil, "", fmt.Errorf("store user: %w", err)
	}
	if err := s.store.Set(ctx, model.UserEmailKey(email), []byte(user.ID)); err != nil {
		return nil, "", fmt.Errorf("store email index: %w", err)
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return &user, token, nil
}

// Login verifies credentials and issues a fresh session token.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	idBytes, err := s.store.Get(ctx, model.UserEmailKey(email))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", fmt.Errorf("lookup email: %w", err)
	}

	var user model.User
	if err := kv.GetJSON(ctx, s.store, model.UserKey(string(idBytes)), &user); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", fmt.Errorf("load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrUnauthorized
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Resolve maps a bearer token to a verified identity.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}

	var sess session
	if err := kv.GetJSON(ctx, s.store, model.SessionKey(token), &sess); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var user model.User
	if err := kv.GetJSON(ctx, s.store, model.UserKey(sess.UserID), &user); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

func (s *Service) issueSession(ctx context.Context, userID string) (string, error) {
	token := model.NewToken()
	sess := session{UserID: userID, CreatedAt: time.Now().UTC()}
	if err := kv.SetJSON(ctx, s.store, model.SessionKey(token), sess); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
