// Package devserver implements a self-contained, in-memory rendition
// of the find-and-returned REST API. It exists so the client can be
// developed and tested without the production backend: same routes,
// same response envelope, same token lifecycle (including refresh
// token rotation).
package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the development API server.
type Server struct {
	store  *memStore
	router chi.Router
}

// New creates a server. allowedOrigins feeds the CORS middleware.
func New(allowedOrigins []string) *Server {
	s := &Server{
		store: newMemStore(),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(allowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		r.Get("/listings", s.handleSearchListings)
		r.Get("/listings/{id}", s.handleGetListing)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/users/me", s.handleCurrentUser)

			r.Post("/listings", s.handleCreateListing)
			r.Put("/listings/{id}", s.handleUpdateListing)
			r.Delete("/listings/{id}", s.handleDeleteListing)
			r.Post("/upload/image", s.handleUploadImage)

			r.Get("/threads", s.handleGetThreads)
			r.Post("/threads", s.handleCreateThread)
			r.Get("/threads/{id}", s.handleGetThread)
			r.Patch("/threads/{id}/close", s.handleCloseThread)

			r.Post("/messages", s.handleSendMessage)
			r.Get("/messages/thread/{id}", s.handleGetMessages)
			r.Patch("/messages/thread/{id}/read", s.handleMarkThreadRead)
			r.Get("/messages/unread-count", s.handleUnreadCount)
		})
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ExpireAccessToken invalidates an access token without touching the
// refresh token. Lets tests and manual runs force the client through
// its 401-refresh-retry path.
func (s *Server) ExpireAccessToken(token string) {
	s.store.expireAccessToken(token)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// envelope mirrors the production API's uniform response wrapper.
type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Message:   "ok",
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
