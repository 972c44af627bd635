package service

import (
	"context"
	"log/slog"

	"github.com/mbathio/find-and-returned/internal/api"
	"github.com/mbathio/find-and-returned/internal/domain"
	"github.com/mbathio/find-and-returned/internal/observability"
	"github.com/mbathio/find-and-returned/internal/storage"
)

// AuthService wraps the auth endpoints and keeps persisted storage in
// step with every successful call.
type AuthService struct {
	client *api.Client
	store  *storage.SessionStore
}

func NewAuthService(client *api.Client, store *storage.SessionStore) *AuthService {
	return &AuthService{
		client: client,
		store:  store,
	}
}

// Login authenticates with email and password and persists the
// returned tokens and user.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	var auth domain.AuthResponse
	if err := s.client.Post(ctx, "auth/login", req, &auth); err != nil {
		return nil, err
	}
	if err := s.store.SaveAuth(&auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Register creates an account. The API authenticates on registration,
// so the response is persisted the same way as a login.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	var auth domain.AuthResponse
	if err := s.client.Post(ctx, "auth/register", req, &auth); err != nil {
		return nil, err
	}
	if err := s.store.SaveAuth(&auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Logout tells the server to revoke the session, then clears local
// state. The remote call is best-effort: a network failure is logged
// and local cleanup proceeds regardless.
func (s *AuthService) Logout(ctx context.Context) error {
	if s.store.AccessToken() != "" {
		if err := s.client.Post(ctx, "auth/logout", struct{}{}, nil); err != nil {
			observability.FromContext(ctx).Warn("remote logout failed", slog.String("error", err.Error()))
		}
	}
	return s.store.ClearSession()
}

// GetCurrentUser fetches the authenticated user's profile.
func (s *AuthService) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := s.client.Get(ctx, "users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// StoredUser returns the user profile cached in persisted storage, or
// nil when absent.
func (s *AuthService) StoredUser() *domain.User {
	return s.store.User()
}

// IsAuthenticated reports whether storage holds both a usable access
// token and a user profile.
func (s *AuthService) IsAuthenticated() bool {
	return s.store.AccessToken() != "" && s.store.User() != nil
}
