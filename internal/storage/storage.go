// Package storage provides the persisted key-value store that holds
// session tokens and the cached user profile between runs. It plays the
// role the browser's localStorage plays for the web client: the source
// of truth read at process start.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mbathio/find-and-returned/internal/domain"
)

// Well-known keys shared with the web client.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// Store is a persisted string key-value store. Implementations must be
// safe for concurrent use; writes are synchronous and visible to any
// subsequent read.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
}

// SessionStore wraps a Store with typed access to the session keys.
// Token writes and the compare-and-delete share one mutex so a token
// persisted by a refresh can never be lost to a stale comparison.
type SessionStore struct {
	mu sync.Mutex
	kv Store
}

func NewSessionStore(kv Store) *SessionStore {
	return &SessionStore{kv: kv}
}

// sanitize treats the literal strings "null" and "undefined" as absent.
// Historical versions of the web client wrote them into localStorage.
func sanitize(v string, ok bool) string {
	if !ok || v == "" || v == "null" || v == "undefined" {
		return ""
	}
	return v
}

// AccessToken returns the stored access token, or "" if absent.
func (s *SessionStore) AccessToken() string {
	return sanitize(s.kv.Get(KeyAccessToken))
}

// RefreshToken returns the stored refresh token, or "" if absent.
func (s *SessionStore) RefreshToken() string {
	return sanitize(s.kv.Get(KeyRefreshToken))
}

// SetAccessToken stores a new access token.
func (s *SessionStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Set(KeyAccessToken, token)
}

// SetTokens stores a new access token and, when non-empty, a new
// refresh token. Refresh responses are not required to rotate the
// refresh token, so an empty one leaves the stored value untouched.
func (s *SessionStore) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(KeyAccessToken, access); err != nil {
		return err
	}
	if refresh != "" {
		return s.kv.Set(KeyRefreshToken, refresh)
	}
	return nil
}

// User returns the stored user profile, or nil if absent or unreadable.
func (s *SessionStore) User() *domain.User {
	raw := sanitize(s.kv.Get(KeyUser))
	if raw == "" {
		return nil
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// SetUser stores the user profile.
func (s *SessionStore) SetUser(u *domain.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.kv.Set(KeyUser, string(raw))
}

// SaveAuth persists everything from a successful login, register or
// refresh response.
func (s *SessionStore) SaveAuth(a *domain.AuthResponse) error {
	if err := s.SetTokens(a.AccessToken, a.RefreshToken); err != nil {
		return err
	}
	if a.User != nil {
		return s.SetUser(a.User)
	}
	return nil
}

// ClearSession removes the tokens and the cached user.
func (s *SessionStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := s.kv.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// ClearAccessTokenIf deletes the access token only if it still equals
// the given value. Used after a 401 so a token refreshed concurrently
// by another caller is never clobbered; the comparison and the delete
// happen under the same lock as the token writers.
func (s *SessionStore) ClearAccessTokenIf(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sanitize(s.kv.Get(KeyAccessToken)) != token {
		return nil
	}
	return s.kv.Delete(KeyAccessToken)
}
