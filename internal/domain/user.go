package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Role describes how a user participates on the platform.
type Role string

const (
	RoleFinder Role = "finder" // found an item and wants to return it
	RoleOwner  Role = "owner"  // lost an item and is looking for it
	RoleBoth   Role = "both"
)

// User represents a platform account
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone,omitempty"`
	Role          Role       `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}
