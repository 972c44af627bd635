package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mbathio/find-and-returned/internal/domain"
)

const defaultPageSize = 20

func paging(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func pageOf[T any](items []T, page, pageSize int) domain.PagedResponse[T] {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return domain.PagedResponse[T]{
		Items:      items[start:end],
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
}

func (s *Server) handleSearchListings(w http.ResponseWriter, r *http.Request) {
	matches := s.store.searchListings(r.URL.Query().Get("q"), r.URL.Query().Get("category"))

	items := make([]domain.Listing, len(matches))
	for i, l := range matches {
		items[i] = *l
	}

	page, pageSize := paging(r)
	writeData(w, http.StatusOK, pageOf(items, page, pageSize))
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.store.listingByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeData(w, http.StatusOK, listing)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "title and category are required")
		return
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Category:     req.Category,
		LocationText: req.LocationText,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		FoundAt:      req.FoundAt,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Status:       domain.ListingActive,
		FinderUserID: requestUserID(r.Context()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.store.putListing(listing)
	writeData(w, http.StatusCreated, listing)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.store.listingByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if listing.FinderUserID != requestUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the finder can edit a listing")
		return
	}

	var req domain.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated := *listing
	if req.Title != "" {
		updated.Title = req.Title
	}
	if req.Category != "" {
		updated.Category = req.Category
	}
	if req.LocationText != "" {
		updated.LocationText = req.LocationText
	}
	if req.Description != "" {
		updated.Description = req.Description
	}
	if req.ImageURL != "" {
		updated.ImageURL = req.ImageURL
	}
	if !req.FoundAt.IsZero() {
		updated.FoundAt = req.FoundAt
	}
	updated.UpdatedAt = time.Now().UTC()

	s.store.putListing(&updated)
	writeData(w, http.StatusOK, &updated)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listing, ok := s.store.listingByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if listing.FinderUserID != requestUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the finder can delete a listing")
		return
	}

	s.store.deleteListing(id)
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	// Contents are discarded; only the URL matters for development.
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	url := fmt.Sprintf("/uploads/%s-%s", uuid.NewString()[:8], header.Filename)
	writeData(w, http.StatusOK, map[string]string{"url": url})
}
