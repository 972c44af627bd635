package domain

import (
	"errors"
	"time"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrThreadClosed   = errors.New("thread is closed")
)

// ThreadStatus tracks whether a conversation is still open.
type ThreadStatus string

const (
	ThreadActive ThreadStatus = "active"
	ThreadClosed ThreadStatus = "closed"
)

// MessageType distinguishes user text from system notices.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// Message is a single message inside a thread
type Message struct {
	ID          string      `json:"id"`
	ThreadID    string      `json:"thread_id"`
	SenderUser  *User       `json:"sender_user"`
	Body        string      `json:"body"`
	MessageType MessageType `json:"message_type"`
	IsRead      bool        `json:"is_read"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Thread is a conversation between the finder and the owner of an item
type Thread struct {
	ID               string       `json:"id"`
	Listing          *Listing     `json:"listing"`
	OwnerUser        *User        `json:"owner_user"`
	FinderUser       *User        `json:"finder_user"`
	Status           ThreadStatus `json:"status"`
	ApprovedByOwner  bool         `json:"approved_by_owner,omitempty"`
	ApprovedByFinder bool         `json:"approved_by_finder,omitempty"`
	LastMessageAt    *time.Time   `json:"last_message_at,omitempty"`
	UnreadCount      int          `json:"unread_count,omitempty"`
	LastMessage      *Message     `json:"last_message,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// CreateMessageRequest is the payload for sending a message
type CreateMessageRequest struct {
	ThreadID    string      `json:"threadId"`
	Body        string      `json:"body"`
	MessageType MessageType `json:"messageType,omitempty"`
}
