package domain

import "errors"

var (
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrInvalidRefresh = errors.New("refresh response missing access token")
)

// LoginRequest is the payload for auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for auth/register
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// AuthResponse is returned by login, register and refresh
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}

// Session is the client-side view of an authenticated session. A valid
// session always carries a non-empty access token; without a refresh
// token the session cannot be renewed once the access token expires.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenScheme  string `json:"token_scheme"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}
