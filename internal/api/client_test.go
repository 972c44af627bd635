package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mbathio/find-and-returned/internal/domain"
	"github.com/mbathio/find-and-returned/internal/storage"
	"github.com/mbathio/find-and-returned/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string, nav Navigator) (*Client, *storage.SessionStore) {
	t.Helper()
	store := storage.NewSessionStore(storage.NewMemoryStore())
	client := New(Options{
		BaseURL:   baseURL,
		Store:     store,
		Navigator: nav,
	})
	return client, store
}

func TestGet_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		testutil.WriteEnvelope(w, http.StatusOK, map[string]string{"id": "42"})
	}))
	defer server.Close()

	client, store := newTestClient(t, server.URL, nil)
	store.SetAccessToken("tok1")

	var out struct {
		ID string `json:"id"`
	}
	if err := client.Get(context.Background(), "listings/42", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer tok1" {
		t.Errorf("expected Authorization header %q, got %q", "Bearer tok1", gotAuth)
	}
	if out.ID != "42" {
		t.Errorf("expected unwrapped data id 42, got %q", out.ID)
	}
}

func TestGet_PlaceholderTokenNotAttached(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"literal_null", "null"},
		{"literal_undefined", "undefined"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				testutil.WriteEnvelope(w, http.StatusOK, nil)
			}))
			defer server.Close()

			client, store := newTestClient(t, server.URL, nil)
			store.SetAccessToken(tt.token)

			if err := client.Get(context.Background(), "listings", nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotAuth != "" {
				t.Errorf("expected no Authorization header, got %q", gotAuth)
			}
		})
	}
}

func TestPost_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		testutil.WriteEnvelope(w, http.StatusOK, nil)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, nil)
	err := client.Post(context.Background(), "auth/login", domain.LoginRequest{Email: "a@b.com", Password: "secret"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequest_TransportErrorNormalizedTo500(t *testing.T) {
	client, _ := newTestClient(t, "http://invalid.domain.that.does.not.exist.local", nil)

	err := client.Get(context.Background(), "listings", nil)
	if err == nil {
		t.Fatal("expected error for network failure")
	}

	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.Status)
	}
	if apiErr.Response != nil {
		t.Error("expected nil raw response for transport error")
	}
}

func TestRequest_ServerErrorMessagePreferred(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelopeError(w, http.StatusConflict, "email already registered")
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, nil)
	err := client.Post(context.Background(), "auth/register", map[string]string{}, nil)

	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", apiErr.Status)
	}
	if apiErr.Message != "email already registered" {
		t.Errorf("expected server message, got %q", apiErr.Message)
	}
	if apiErr.Response == nil {
		t.Error("expected raw response to be captured")
	}
}

func TestRequest_RefreshAndRetryOnce(t *testing.T) {
	var refreshCalls, listingCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/listings/42", func(w http.ResponseWriter, r *http.Request) {
		listingCalls.Add(1)
		if testutil.BearerToken(r) != "tok2" {
			testutil.WriteEnvelopeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		testutil.WriteEnvelope(w, http.StatusOK, map[string]string{"id": "42"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		testutil.WriteEnvelope(w, http.StatusOK, domain.AuthResponse{
			AccessToken:  "tok2",
			RefreshToken: "refresh2",
			TokenType:    "Bearer",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, store := newTestClient(t, server.URL, nil)
	store.SetTokens("tok1", "refresh1")

	var out struct {
		ID string `json:"id"`
	}
	if err := client.Get(context.Background(), "listings/42", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.ID != "42" {
		t.Errorf("expected retried request to succeed, got id %q", out.ID)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 refresh call, got %d", got)
	}
	if got := listingCalls.Load(); got != 2 {
		t.Errorf("expected original + retried request, got %d calls", got)
	}
	if got := store.AccessToken(); got != "tok2" {
		t.Errorf("expected storage to hold tok2, got %q", got)
	}
	if got := store.RefreshToken(); got != "refresh2" {
		t.Errorf("expected rotated refresh token, got %q", got)
	}
}

func TestRequest_NoInfiniteRetryLoop(t *testing.T) {
	var listingCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/listings/42", func(w http.ResponseWriter, r *http.Request) {
		// Rejects even the refreshed token.
		listingCalls.Add(1)
		testutil.WriteEnvelopeError(w, http.StatusUnauthorized, "nope")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		testutil.WriteEnvelope(w, http.StatusOK, domain.AuthResponse{AccessToken: "tok2"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, store := newTestClient(t, server.URL, nil)
	store.SetTokens("tok1", "refresh1")

	err := client.Get(context.Background(), "listings/42", nil)
	if err == nil {
		t.Fatal("expected error when retry also fails")
	}
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %v", err)
	}

	if got := listingCalls.Load(); got != 2 {
		t.Errorf("request must be retried exactly once, got %d attempts", got)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("expected 1 refresh call, got %d", got)
	}
}

func TestRequest_RefreshFailureClearsSessionAndRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/listings/42", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelopeError(w, http.StatusUnauthorized, "token expired")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelopeError(w, http.StatusUnauthorized, "refresh token expired")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	nav := testutil.NewRecordingNavigator("/listings/42")
	client, store := newTestClient(t, server.URL, nav)
	store.SetTokens("tok1", "refresh1")
	store.SetUser(testutil.NewTestUser())

	err := client.Get(context.Background(), "listings/42", nil)
	if err == nil {
		t.Fatal("expected error after failed refresh")
	}

	if got := store.AccessToken(); got != "" {
		t.Errorf("expected access token cleared, got %q", got)
	}
	if got := store.RefreshToken(); got != "" {
		t.Errorf("expected refresh token cleared, got %q", got)
	}
	if store.User() != nil {
		t.Error("expected stored user cleared")
	}
	if got := nav.LastNavigation(); got != "/auth?redirect=%2Flistings%2F42" {
		t.Errorf("expected redirect to login with return path, got %q", got)
	}
}

func TestRequest_NoRedirectParamFromRoot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/listings", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelopeError(w, http.StatusUnauthorized, "token expired")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	nav := testutil.NewRecordingNavigator("/")
	client, store := newTestClient(t, server.URL, nav)
	store.SetAccessToken("tok1") // no refresh token

	_ = client.Get(context.Background(), "listings", nil)

	if got := nav.LastNavigation(); got != "/auth" {
		t.Errorf("expected bare login path from root, got %q", got)
	}
}

func TestRequest_NoRedirectWhenAlreadyOnLoginPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelopeError(w, http.StatusUnauthorized, "token expired")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	nav := testutil.NewRecordingNavigator("/auth")
	client, store := newTestClient(t, server.URL, nav)
	store.SetAccessToken("tok1")

	_ = client.Get(context.Background(), "users/me", nil)

	if len(nav.Log) != 0 {
		t.Errorf("expected no navigation from the login path, got %v", nav.Log)
	}
}

func TestUploadFile_MultipartWithProgress(t *testing.T) {
	payload := strings.Repeat("x", 64*1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart body: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "wallet.jpg" {
			t.Errorf("expected filename wallet.jpg, got %q", header.Filename)
		}
		testutil.WriteEnvelope(w, http.StatusOK, map[string]string{"url": "/uploads/wallet.jpg"})
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, nil)

	var progress []float64
	var out struct {
		URL string `json:"url"`
	}
	err := client.UploadFile(context.Background(), "upload/image", "wallet.jpg",
		strings.NewReader(payload), func(pct float64) {
			progress = append(progress, pct)
		}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.URL != "/uploads/wallet.jpg" {
		t.Errorf("expected upload URL, got %q", out.URL)
	}
	if len(progress) == 0 {
		t.Fatal("expected progress callbacks")
	}
	last := progress[len(progress)-1]
	if last != 100 {
		t.Errorf("expected final progress 100, got %v", last)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress went backwards: %v after %v", progress[i], progress[i-1])
		}
	}
}

func TestScenario_LoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteEnvelope(w, http.StatusOK, domain.AuthResponse{
			AccessToken:  "tok1",
			RefreshToken: "refresh1",
			TokenType:    "Bearer",
			User:         testutil.NewTestUser(testutil.WithEmail("a@b.com")),
		})
	}))
	defer server.Close()

	client, store := newTestClient(t, server.URL, nil)

	var auth domain.AuthResponse
	err := client.Post(context.Background(), "auth/login",
		domain.LoginRequest{Email: "a@b.com", Password: "secret"}, &auth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.AccessToken != "tok1" {
		t.Fatalf("expected tok1, got %q", auth.AccessToken)
	}

	if err := store.SaveAuth(&auth); err != nil {
		t.Fatalf("failed to persist auth: %v", err)
	}
	if got := store.AccessToken(); got != "tok1" {
		t.Errorf("expected storage to hold tok1, got %q", got)
	}
}
