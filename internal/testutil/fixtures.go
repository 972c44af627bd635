package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mbathio/find-and-returned/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID        string
	Name      string
	Email     string
	Role      domain.Role
	CreatedAt time.Time
}

// NewTestUser creates a test user with sensible defaults
// Pass options to override specific fields
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	o := &UserOptions{
		ID:   nextID("user"),
		Name: fmt.Sprintf("Test User %d", idCounter.Load()),
		Role: domain.RoleFinder,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Email == "" {
		o.Email = fmt.Sprintf("user%s@example.com", o.ID)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	return &domain.User{
		ID:        o.ID,
		Name:      o.Name,
		Email:     o.Email,
		Role:      o.Role,
		Active:    true,
		CreatedAt: o.CreatedAt,
	}
}

// WithUserID sets the user ID
func WithUserID(id string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.ID = id
	}
}

// WithName sets the display name
func WithName(name string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Name = name
	}
}

// WithEmail sets the email
func WithEmail(email string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Email = email
	}
}

// WithRole sets the platform role
func WithRole(role domain.Role) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Role = role
	}
}

// ListingOptions allows customizing listing fixture creation
type ListingOptions struct {
	ID           string
	Title        string
	Category     string
	FinderUserID string
}

// NewTestListing creates a test listing with sensible defaults
func NewTestListing(opts ...func(*ListingOptions)) *domain.Listing {
	o := &ListingOptions{
		ID:       nextID("listing"),
		Title:    "Black leather wallet",
		Category: "wallets",
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.FinderUserID == "" {
		o.FinderUserID = nextID("user")
	}

	now := time.Now().UTC()
	return &domain.Listing{
		ID:           o.ID,
		Title:        o.Title,
		Category:     o.Category,
		LocationText: "Central Station, platform 3",
		FoundAt:      now.Add(-24 * time.Hour),
		Description:  "Found on a bench, contains no ID",
		Status:       domain.ListingActive,
		FinderUserID: o.FinderUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// WithListingID sets the listing ID
func WithListingID(id string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.ID = id
	}
}

// WithTitle sets the listing title
func WithTitle(title string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.Title = title
	}
}

// WithFinder sets the finder user ID
func WithFinder(userID string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.FinderUserID = userID
	}
}
