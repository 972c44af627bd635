package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mbathio/find-and-returned/internal/domain"
)

func (s *Server) handleGetThreads(w http.ResponseWriter, r *http.Request) {
	threads := s.store.threadsForUser(requestUserID(r.Context()), r.URL.Query().Get("status"))

	items := make([]domain.Thread, len(threads))
	for i, t := range threads {
		items[i] = *t
	}

	page, pageSize := paging(r)
	writeData(w, http.StatusOK, pageOf(items, page, pageSize))
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	listingID := r.URL.Query().Get("listingId")
	listing, ok := s.store.listingByID(listingID)
	if !ok {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}

	finder, ok := s.store.userByID(listing.FinderUserID)
	if !ok {
		writeError(w, http.StatusInternalServerError, "listing finder no longer exists")
		return
	}
	owner, ok := s.store.userByID(requestUserID(r.Context()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if owner.ID == finder.ID {
		writeError(w, http.StatusBadRequest, "cannot open a thread on your own listing")
		return
	}

	now := time.Now().UTC()
	thread := &domain.Thread{
		ID:         uuid.NewString(),
		Listing:    listing,
		OwnerUser:  owner,
		FinderUser: finder,
		Status:     domain.ThreadActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.store.putThread(thread)
	writeData(w, http.StatusCreated, thread)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.store.threadByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	userID := requestUserID(r.Context())
	if thread.OwnerUser.ID != userID && thread.FinderUser.ID != userID {
		writeError(w, http.StatusForbidden, "not a participant of this thread")
		return
	}
	writeData(w, http.StatusOK, thread)
}

func (s *Server) handleCloseThread(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.store.threadByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	userID := requestUserID(r.Context())
	if thread.OwnerUser.ID != userID && thread.FinderUser.ID != userID {
		writeError(w, http.StatusForbidden, "not a participant of this thread")
		return
	}

	thread.Status = domain.ThreadClosed
	thread.UpdatedAt = time.Now().UTC()
	s.store.putThread(thread)
	writeData(w, http.StatusOK, thread)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ThreadID == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "threadId and body are required")
		return
	}

	thread, ok := s.store.threadByID(req.ThreadID)
	if !ok {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	if thread.Status == domain.ThreadClosed {
		writeError(w, http.StatusConflict, "thread is closed")
		return
	}
	userID := requestUserID(r.Context())
	if thread.OwnerUser.ID != userID && thread.FinderUser.ID != userID {
		writeError(w, http.StatusForbidden, "not a participant of this thread")
		return
	}

	sender, _ := s.store.userByID(userID)
	msgType := req.MessageType
	if msgType == "" {
		msgType = domain.MessageText
	}

	msg := &domain.Message{
		ID:          uuid.NewString(),
		ThreadID:    req.ThreadID,
		SenderUser:  sender,
		Body:        req.Body,
		MessageType: msgType,
		CreatedAt:   time.Now().UTC(),
	}
	s.store.appendMessage(msg)
	writeData(w, http.StatusCreated, msg)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	thread, ok := s.store.threadByID(threadID)
	if !ok {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	userID := requestUserID(r.Context())
	if thread.OwnerUser.ID != userID && thread.FinderUser.ID != userID {
		writeError(w, http.StatusForbidden, "not a participant of this thread")
		return
	}

	msgs := s.store.messagesForThread(threadID)
	items := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		items[i] = *m
	}

	page, pageSize := paging(r)
	writeData(w, http.StatusOK, pageOf(items, page, pageSize))
}

func (s *Server) handleMarkThreadRead(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")
	if _, ok := s.store.threadByID(threadID); !ok {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	s.store.markThreadRead(threadID, requestUserID(r.Context()))
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.store.unreadCount(requestUserID(r.Context())))
}
