package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbathio/find-and-returned/internal/domain"
)

func (s *Server) authResponse(user *domain.User) domain.AuthResponse {
	access, refresh := s.store.issueTokens(user.ID)
	return domain.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
		User:         user,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "name, email and a password of 8+ characters are required")
		return
	}

	role := req.Role
	if role == "" {
		role = domain.RoleFinder
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if !s.store.createAccount(user, hash) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	writeData(w, http.StatusCreated, s.authResponse(&user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, ok := s.store.accountByEmail(req.Email)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.store.touchLogin(acc.user.ID)
	user, _ := s.store.userByID(acc.user.ID)
	writeData(w, http.StatusOK, s.authResponse(user))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	userID, ok := s.store.redeemRefreshToken(req.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}
	user, ok := s.store.userByID(userID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	writeData(w, http.StatusOK, s.authResponse(user))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.revokeUserTokens(requestUserID(r.Context()))
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.store.userByID(requestUserID(r.Context()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	writeData(w, http.StatusOK, user)
}
