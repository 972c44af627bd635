// Package session owns the process-wide authenticated-user state. It
// bootstraps from persisted storage at startup so the UI can paint the
// correct state without a network round-trip, then reconciles against
// the server's view of the profile in the background.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mbathio/find-and-returned/internal/api"
	"github.com/mbathio/find-and-returned/internal/cache"
	"github.com/mbathio/find-and-returned/internal/domain"
	"github.com/mbathio/find-and-returned/internal/observability"
	"github.com/mbathio/find-and-returned/internal/service"
	"github.com/mbathio/find-and-returned/internal/storage"
)

// State is an immutable snapshot of the session delivered to
// subscribers on every transition.
type State struct {
	User          *domain.User
	Authenticated bool
	Loading       bool
}

// Manager is the single source of truth for "who is logged in".
// All methods are safe for concurrent use.
type Manager struct {
	auth  *service.AuthService
	store *storage.SessionStore
	cache *cache.Cache

	mu            sync.RWMutex
	user          *domain.User
	authenticated bool
	initialized   bool
	fetching      bool
	subs          map[int]func(State)
	nextSub       int

	fetchWG sync.WaitGroup
}

func NewManager(auth *service.AuthService, store *storage.SessionStore, c *cache.Cache) *Manager {
	return &Manager{
		auth:  auth,
		store: store,
		cache: c,
		subs:  make(map[int]func(State)),
	}
}

// Initialize bootstraps the session from persisted storage. A stored
// user plus a non-placeholder token means Authenticated; anything else
// means Anonymous. The call is synchronous and idempotent; when it
// leaves the session Authenticated, a background fetch of the profile
// reconciles the bootstrap copy with the server.
func (m *Manager) Initialize(ctx context.Context) {
	storedUser := m.store.User()
	hasToken := m.store.AccessToken() != ""

	m.mu.Lock()
	if hasToken && storedUser != nil {
		m.user = storedUser
		m.authenticated = true
	} else {
		m.user = nil
		m.authenticated = false
	}
	m.initialized = true
	authenticated := m.authenticated
	if authenticated {
		m.fetching = true
	}
	m.mu.Unlock()

	observability.FromContext(ctx).Info("session initialized",
		slog.Bool("authenticated", authenticated))
	m.notify()

	if authenticated {
		m.fetchWG.Add(1)
		go func() {
			defer m.fetchWG.Done()
			m.fetchProfile(ctx)
		}()
	}
}

// fetchProfile pulls the authoritative profile from the API. An
// authorization failure forces a logout; any other failure is retried
// once and then swallowed, leaving the bootstrap copy in place.
func (m *Manager) fetchProfile(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		m.fetching = false
		m.mu.Unlock()
		m.notify()
	}()

	log := observability.FromContext(ctx)

	var user *domain.User
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		user, err = m.auth.GetCurrentUser(ctx)
		if err == nil {
			break
		}
		var apiErr *api.Error
		unauthorized := errors.As(err, &apiErr) && apiErr.IsUnauthorized()
		if unauthorized || errors.Is(err, domain.ErrNoRefreshToken) {
			log.Warn("stored session rejected by server, logging out")
			m.Logout(ctx)
			return
		}
	}
	if err != nil {
		log.Warn("profile fetch failed, keeping stored user",
			slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	if !m.authenticated {
		// Logged out while the fetch was in flight.
		m.mu.Unlock()
		return
	}
	m.user = user
	m.mu.Unlock()

	if serr := m.store.SetUser(user); serr != nil {
		log.Warn("failed to persist fetched user", slog.String("error", serr.Error()))
	}
	m.cache.Set(cache.KeyCurrentUser, user)
}

// Login records a successful authentication. Tokens are already
// persisted by the auth service; this mirrors the user into memory,
// storage and the query cache so the UI is correct immediately.
func (m *Manager) Login(user *domain.User) {
	m.mu.Lock()
	m.user = user
	m.authenticated = true
	m.mu.Unlock()

	if err := m.store.SetUser(user); err != nil {
		observability.Warn("failed to persist user on login", slog.String("error", err.Error()))
	}
	m.cache.Set(cache.KeyCurrentUser, user)
	m.notify()
}

// Logout ends the session: best-effort remote revocation, then an
// unconditional local wipe of memory, storage and the entire query
// cache.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.auth.Logout(ctx); err != nil {
		observability.FromContext(ctx).Warn("failed to clear session storage",
			slog.String("error", err.Error()))
	}

	m.mu.Lock()
	m.user = nil
	m.authenticated = false
	m.mu.Unlock()

	m.cache.Clear()
	m.notify()
}

// UpdateUser replaces the in-memory, persisted and cached profile
// without touching the authenticated flag.
func (m *Manager) UpdateUser(user *domain.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	if err := m.store.SetUser(user); err != nil {
		observability.Warn("failed to persist user update", slog.String("error", err.Error()))
	}
	m.cache.Set(cache.KeyCurrentUser, user)
	m.notify()
}

// CurrentUser returns the current user, nil when Anonymous.
func (m *Manager) CurrentUser() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticated
}

// IsLoading is true until Initialize has run, and while the initial
// profile fetch for a restored session is still outstanding.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.initialized || m.fetching
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		User:          m.user,
		Authenticated: m.authenticated,
		Loading:       !m.initialized || m.fetching,
	}
}

// Subscribe registers a callback invoked on every state transition.
// The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	state := State{
		User:          m.user,
		Authenticated: m.authenticated,
		Loading:       !m.initialized || m.fetching,
	}
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}
