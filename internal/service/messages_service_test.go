package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mbathio/find-and-returned/internal/api"
	"github.com/mbathio/find-and-returned/internal/cache"
	"github.com/mbathio/find-and-returned/internal/domain"
	"github.com/mbathio/find-and-returned/internal/storage"
	"github.com/mbathio/find-and-returned/internal/testutil"
)

func newMessagesService(t *testing.T, handler http.Handler) (*MessagesService, *cache.Cache) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := storage.NewSessionStore(storage.NewMemoryStore())
	client := api.New(api.Options{BaseURL: server.URL, Store: store})
	c := cache.New()
	return NewMessagesService(client, c), c
}

func TestGetThreads_CachesPerPageAndStatus(t *testing.T) {
	var calls atomic.Int32
	svc, _ := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("page") != "1" || q.Get("pageSize") != "20" {
			t.Errorf("expected paging params, got %s", r.URL.RawQuery)
		}
		testutil.WriteEnvelope(w, http.StatusOK, domain.PagedResponse[domain.Thread]{
			Items: []domain.Thread{{ID: "t1", Status: domain.ThreadActive}},
			Total: 1, Page: 1, TotalPages: 1,
		})
	}))

	page, err := svc.GetThreads(context.Background(), "", 1, 20)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(page.Items), 1)

	_, err = svc.GetThreads(context.Background(), "", 1, 20)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls.Load(), 1)

	_, err = svc.GetThreads(context.Background(), "active", 1, 20)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, calls.Load(), 2)
}

func TestCreateThread_InvalidatesThreadList(t *testing.T) {
	var listCalls atomic.Int32
	svc, _ := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if got := r.URL.Query().Get("listingId"); got != "l1" {
				t.Errorf("expected listingId=l1, got %q", got)
			}
			testutil.WriteEnvelope(w, http.StatusCreated, domain.Thread{ID: "t1"})
			return
		}
		listCalls.Add(1)
		testutil.WriteEnvelope(w, http.StatusOK, domain.PagedResponse[domain.Thread]{Page: 1})
	}))

	_, err := svc.GetThreads(context.Background(), "", 1, 20)
	testutil.AssertNoError(t, err)

	thread, err := svc.CreateThread(context.Background(), "l1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, thread.ID, "t1")

	_, err = svc.GetThreads(context.Background(), "", 1, 20)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, listCalls.Load(), 2)
}

func TestCloseThread(t *testing.T) {
	svc, _ := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/threads/t1/close" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		testutil.WriteEnvelope(w, http.StatusOK, domain.Thread{ID: "t1", Status: domain.ThreadClosed})
	}))

	thread, err := svc.CloseThread(context.Background(), "t1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, thread.Status, domain.ThreadClosed)
}

func TestSendMessage_InvalidatesThreadCaches(t *testing.T) {
	svc, c := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.CreateMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode message body: %v", err)
		}
		testutil.WriteEnvelope(w, http.StatusCreated, domain.Message{
			ID:       "m1",
			ThreadID: req.ThreadID,
			Body:     req.Body,
		})
	}))

	c.Set(cache.Key("messages", "t1"), "stale")
	c.Set(cache.Key(cache.KeyThreads, "page=1"), "stale")

	msg, err := svc.SendMessage(context.Background(), domain.CreateMessageRequest{
		ThreadID: "t1",
		Body:     "I think that's mine",
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, msg.Body, "I think that's mine")

	_, ok := c.Get(cache.Key("messages", "t1"))
	testutil.AssertFalse(t, ok, "expected thread messages invalidated")
	_, ok = c.Get(cache.Key(cache.KeyThreads, "page=1"))
	testutil.AssertFalse(t, ok, "expected thread list invalidated")
}

func TestMarkThreadAsRead(t *testing.T) {
	var patched atomic.Int32
	svc, c := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch && r.URL.Path == "/messages/thread/t1/read" {
			patched.Add(1)
		}
		testutil.WriteEnvelope(w, http.StatusOK, nil)
	}))

	c.Set("unreadCount", 3)
	testutil.AssertNoError(t, svc.MarkThreadAsRead(context.Background(), "t1"))

	testutil.AssertEqual(t, patched.Load(), 1)
	_, ok := c.Get("unreadCount")
	testutil.AssertFalse(t, ok, "expected unread count dropped")
}

func TestUnreadCount(t *testing.T) {
	svc, _ := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/unread-count" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		testutil.WriteEnvelope(w, http.StatusOK, 5)
	}))

	count, err := svc.UnreadCount(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, count, 5)
}

func TestGetMessages(t *testing.T) {
	svc, _ := newMessagesService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/thread/t1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		testutil.WriteEnvelope(w, http.StatusOK, domain.PagedResponse[domain.Message]{
			Items: []domain.Message{{ID: "m1", ThreadID: "t1", Body: "hello"}},
			Total: 1, Page: 1, TotalPages: 1,
		})
	}))

	page, err := svc.GetMessages(context.Background(), "t1", 1, 50)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(page.Items), 1)
	testutil.AssertEqual(t, page.Items[0].Body, "hello")
}
