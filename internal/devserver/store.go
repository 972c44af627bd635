package devserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbathio/find-and-returned/internal/domain"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type account struct {
	user         domain.User
	passwordHash []byte
}

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

// memStore holds all devserver state in memory. It exists for local
// development and tests; nothing survives a restart.
type memStore struct {
	mu            sync.RWMutex
	accounts      map[string]*account // keyed by email
	accessTokens  map[string]tokenEntry
	refreshTokens map[string]tokenEntry
	listings      map[string]*domain.Listing
	threads       map[string]*domain.Thread
	messages      map[string][]*domain.Message // keyed by thread id
}

func newMemStore() *memStore {
	return &memStore{
		accounts:      make(map[string]*account),
		accessTokens:  make(map[string]tokenEntry),
		refreshTokens: make(map[string]tokenEntry),
		listings:      make(map[string]*domain.Listing),
		threads:       make(map[string]*domain.Thread),
		messages:      make(map[string][]*domain.Message),
	}
}

func (s *memStore) createAccount(user domain.User, passwordHash []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := s.accounts[key]; exists {
		return false
	}
	s.accounts[key] = &account{user: user, passwordHash: passwordHash}
	return true
}

func (s *memStore) accountByEmail(email string) (*account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	return acc, ok
}

func (s *memStore) userByID(id string) (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			u := acc.user
			return &u, true
		}
	}
	return nil, false
}

func (s *memStore) touchLogin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			acc.user.LastLoginAt = &now
			return
		}
	}
}

// issueTokens mints a fresh access/refresh pair for a user.
func (s *memStore) issueTokens(userID string) (access, refresh string) {
	access = uuid.NewString()
	refresh = uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens[access] = tokenEntry{userID: userID, expiresAt: now.Add(accessTokenTTL)}
	s.refreshTokens[refresh] = tokenEntry{userID: userID, expiresAt: now.Add(refreshTokenTTL)}
	return access, refresh
}

// redeemRefreshToken rotates a refresh token, returning the user it
// belonged to. The old token is consumed even on success.
func (s *memStore) redeemRefreshToken(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.refreshTokens[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	delete(s.refreshTokens, token)
	return entry.userID, true
}

func (s *memStore) userForAccessToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accessTokens[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.userID, true
}

// revokeUserTokens drops every token belonging to a user.
func (s *memStore) revokeUserTokens(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, entry := range s.accessTokens {
		if entry.userID == userID {
			delete(s.accessTokens, tok)
		}
	}
	for tok, entry := range s.refreshTokens {
		if entry.userID == userID {
			delete(s.refreshTokens, tok)
		}
	}
}

// expireAccessToken invalidates a single access token. Test hook for
// exercising the client's refresh path.
func (s *memStore) expireAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accessTokens, token)
}

func (s *memStore) putListing(l *domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
}

func (s *memStore) listingByID(id string) (*domain.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	return l, ok
}

func (s *memStore) deleteListing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return false
	}
	delete(s.listings, id)
	return true
}

// searchListings filters by free-text query and category, newest first.
func (s *memStore) searchListings(query, category string) []*domain.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Listing, 0, len(s.listings))
	q := strings.ToLower(query)
	for _, l := range s.listings {
		if category != "" && l.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Title), q) &&
			!strings.Contains(strings.ToLower(l.Description), q) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *memStore) putThread(t *domain.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ID] = t
}

func (s *memStore) threadByID(id string) (*domain.Thread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	return t, ok
}

// threadsForUser returns the threads a user participates in, most
// recently updated first.
func (s *memStore) threadsForUser(userID, status string) []*domain.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Thread, 0)
	for _, t := range s.threads {
		if t.OwnerUser.ID != userID && t.FinderUser.ID != userID {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *memStore) appendMessage(m *domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.ThreadID] = append(s.messages[m.ThreadID], m)
	if t, ok := s.threads[m.ThreadID]; ok {
		now := m.CreatedAt
		t.LastMessageAt = &now
		t.LastMessage = m
		t.UpdatedAt = now
	}
}

func (s *memStore) messagesForThread(threadID string) []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Message(nil), s.messages[threadID]...)
}

// markThreadRead marks messages sent by the other participant as read.
func (s *memStore) markThreadRead(threadID, readerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, m := range s.messages[threadID] {
		if m.SenderUser.ID != readerID && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &now
		}
	}
}

func (s *memStore) unreadCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for threadID, msgs := range s.messages {
		t, ok := s.threads[threadID]
		if !ok || (t.OwnerUser.ID != userID && t.FinderUser.ID != userID) {
			continue
		}
		for _, m := range msgs {
			if m.SenderUser.ID != userID && !m.IsRead {
				count++
			}
		}
	}
	return count
}
