package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mbathio/find-and-returned/internal/api"
	"github.com/mbathio/find-and-returned/internal/cache"
	"github.com/mbathio/find-and-returned/internal/domain"
)

// MessagesService wraps the threads and messages endpoints.
type MessagesService struct {
	client *api.Client
	cache  *cache.Cache
}

func NewMessagesService(client *api.Client, c *cache.Cache) *MessagesService {
	return &MessagesService{
		client: client,
		cache:  c,
	}
}

// GetThreads lists the caller's conversation threads, optionally
// filtered by status.
func (s *MessagesService) GetThreads(ctx context.Context, status string, page, pageSize int) (*domain.PagedResponse[domain.Thread], error) {
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))
	if status != "" {
		params.Set("status", status)
	}

	key := cache.Key(cache.KeyThreads, params.Encode())
	return fetchCached(ctx, s.cache, key, func(ctx context.Context) (*domain.PagedResponse[domain.Thread], error) {
		var threads domain.PagedResponse[domain.Thread]
		if err := s.client.Get(ctx, "threads?"+params.Encode(), &threads); err != nil {
			return nil, err
		}
		return &threads, nil
	})
}

// GetThread returns one thread by id.
func (s *MessagesService) GetThread(ctx context.Context, id string) (*domain.Thread, error) {
	var thread domain.Thread
	if err := s.client.Get(ctx, "threads/"+id, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateThread opens a conversation about a listing.
func (s *MessagesService) CreateThread(ctx context.Context, listingID string) (*domain.Thread, error) {
	var thread domain.Thread
	if err := s.client.Post(ctx, "threads?listingId="+url.QueryEscape(listingID), nil, &thread); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.KeyThreads)
	return &thread, nil
}

// CloseThread marks a conversation as closed.
func (s *MessagesService) CloseThread(ctx context.Context, id string) (*domain.Thread, error) {
	var thread domain.Thread
	if err := s.client.Patch(ctx, "threads/"+id+"/close", nil, &thread); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.KeyThreads)
	return &thread, nil
}

// GetMessages returns a page of messages inside a thread.
func (s *MessagesService) GetMessages(ctx context.Context, threadID string, page, pageSize int) (*domain.PagedResponse[domain.Message], error) {
	path := fmt.Sprintf("messages/thread/%s?page=%d&pageSize=%d", threadID, page, pageSize)
	var messages domain.PagedResponse[domain.Message]
	if err := s.client.Get(ctx, path, &messages); err != nil {
		return nil, err
	}
	return &messages, nil
}

// SendMessage posts a message and invalidates the thread's cached
// messages and the thread list.
func (s *MessagesService) SendMessage(ctx context.Context, req domain.CreateMessageRequest) (*domain.Message, error) {
	var msg domain.Message
	if err := s.client.Post(ctx, "messages", req, &msg); err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.Key("messages", msg.ThreadID))
	s.cache.Invalidate(cache.KeyThreads)
	return &msg, nil
}

// MarkThreadAsRead marks every message in a thread as read.
func (s *MessagesService) MarkThreadAsRead(ctx context.Context, threadID string) error {
	if err := s.client.Patch(ctx, "messages/thread/"+threadID+"/read", nil, nil); err != nil {
		return err
	}
	s.cache.Invalidate(cache.Key("messages", threadID))
	s.cache.Invalidate(cache.KeyThreads)
	s.cache.Remove("unreadCount")
	return nil
}

// UnreadCount returns the number of unread messages across threads.
func (s *MessagesService) UnreadCount(ctx context.Context) (int, error) {
	var count int
	if err := s.client.Get(ctx, "messages/unread-count", &count); err != nil {
		return 0, err
	}
	return count, nil
}
