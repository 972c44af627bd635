package domain

import (
	"errors"
	"net/url"
	"strconv"
	"time"
)

var ErrListingNotFound = errors.New("listing not found")

// ListingStatus tracks whether a found item is still unclaimed.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingResolved ListingStatus = "resolved"
)

// Listing represents a found-item announcement
type Listing struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Category     string        `json:"category"`
	LocationText string        `json:"locationText"`
	Latitude     float64       `json:"latitude,omitempty"`
	Longitude    float64       `json:"longitude,omitempty"`
	FoundAt      time.Time     `json:"foundAt"`
	Description  string        `json:"description"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Status       ListingStatus `json:"status"`
	FinderUserID string        `json:"finderUserId"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// CreateListingRequest is the payload for posting a new listing
type CreateListingRequest struct {
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	LocationText string    `json:"locationText"`
	Latitude     float64   `json:"latitude,omitempty"`
	Longitude    float64   `json:"longitude,omitempty"`
	FoundAt      time.Time `json:"foundAt"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"imageUrl,omitempty"`
}

// ListingSearchParams narrows a listings search. Zero values are omitted
// from the query string.
type ListingSearchParams struct {
	Query    string
	Category string
	Location string
	Lat      float64
	Lng      float64
	RadiusKm float64
	DateFrom string
	DateTo   string
	Page     int
	PageSize int
}

// Encode renders the params as a URL query string, empty when no
// parameter is set.
func (p ListingSearchParams) Encode() string {
	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Location != "" {
		q.Set("location", p.Location)
	}
	if p.Lat != 0 || p.Lng != 0 {
		q.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
		q.Set("lng", strconv.FormatFloat(p.Lng, 'f', -1, 64))
	}
	if p.RadiusKm != 0 {
		q.Set("radius_km", strconv.FormatFloat(p.RadiusKm, 'f', -1, 64))
	}
	if p.DateFrom != "" {
		q.Set("date_from", p.DateFrom)
	}
	if p.DateTo != "" {
		q.Set("date_to", p.DateTo)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return q.Encode()
}

// PagedResponse wraps a page of results
type PagedResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}
