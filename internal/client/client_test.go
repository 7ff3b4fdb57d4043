package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mystuffai/mystuff/internal/log"
	"github.com/mystuffai/mystuff/internal/token"
)

func newTestStore(t *testing.T) *token.Store {
	t.Helper()
	store, err := token.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func newTestClient(t *testing.T, baseURL string, tokens *token.Store, onExpired func()) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:       baseURL,
		Tokens:        tokens,
		Logger:        log.NewNop(),
		OnAuthExpired: onExpired,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	tokens := newTestStore(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing base URL", cfg: Config{Tokens: tokens, Logger: log.NewNop()}},
		{name: "malformed base URL", cfg: Config{BaseURL: "not a url", Tokens: tokens, Logger: log.NewNop()}},
		{name: "missing tokens", cfg: Config{BaseURL: "http://localhost:8000", Logger: log.NewNop()}},
		{name: "missing logger", cfg: Config{BaseURL: "http://localhost:8000", Tokens: tokens}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() expected error, got nil")
			}
		})
	}
}

func TestBearerHeaderAttached(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("my-access", "my-refresh"); err != nil {
		t.Fatal(err)
	}

	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(t, w, http.StatusOK, ConversationListResponse{})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)
	if _, err := c.Conversations(context.Background()); err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}

	if gotAuth != "Bearer my-access" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer my-access")
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestUnauthenticatedEndpointsSkipBearer(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("my-access", "my-refresh"); err != nil {
		t.Fatal(err)
	}

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: "a", RefreshToken: "r"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)
	if _, err := c.Login(context.Background(), "me@example.com", "password123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("login carried Authorization = %q, want none", gotAuth)
	}
}

// Test401TriggersSingleRefreshAndRetry verifies the silent recovery path:
// one refresh attempt, one retry, returning the retried request's result.
func Test401TriggersSingleRefreshAndRetry(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("stale-access", "good-refresh"); err != nil {
		t.Fatal(err)
	}

	var refreshCalls, listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshCalls.Add(1)
			var body refreshRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken != "good-refresh" {
				writeJSON(t, w, http.StatusUnauthorized, errorBody{Detail: "bad refresh token"})
				return
			}
			writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: "fresh-access", RefreshToken: "rotated-refresh"})
		case "/api/v1/conversations":
			listCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh-access" {
				writeJSON(t, w, http.StatusUnauthorized, errorBody{Detail: "token expired"})
				return
			}
			writeJSON(t, w, http.StatusOK, ConversationListResponse{
				Conversations: []Conversation{{ID: "c1", Title: "notes"}},
				Total:         1,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)

	resp, err := c.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if resp.Total != 1 || resp.Conversations[0].ID != "c1" {
		t.Errorf("unexpected response: %+v", resp)
	}

	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := listCalls.Load(); got != 2 {
		t.Errorf("list calls = %d, want 2 (original + retry)", got)
	}

	// Rotated tokens are persisted
	if tokens.Access() != "fresh-access" {
		t.Errorf("Access() = %q, want fresh-access", tokens.Access())
	}
	if tokens.Refresh() != "rotated-refresh" {
		t.Errorf("Refresh() = %q, want rotated-refresh", tokens.Refresh())
	}
}

// TestSecond401DoesNotLoop verifies that a 401 on the retried request
// propagates instead of triggering another refresh cycle.
func TestSecond401DoesNotLoop(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("stale-access", "good-refresh"); err != nil {
		t.Fatal(err)
	}

	var refreshCalls, listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			refreshCalls.Add(1)
			writeJSON(t, w, http.StatusOK, TokenResponse{AccessToken: "fresh-access", RefreshToken: "good-refresh"})
		case "/api/v1/conversations":
			listCalls.Add(1)
			writeJSON(t, w, http.StatusUnauthorized, errorBody{Detail: "still unauthorized"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)

	_, err := c.Conversations(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("Conversations() error = %v, want auth error", err)
	}

	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
	if got := listCalls.Load(); got != 2 {
		t.Errorf("list calls = %d, want 2 (no loop)", got)
	}
}

func TestRefreshFailureClearsTokensAndNotifies(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("stale-access", "bad-refresh"); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			writeJSON(t, w, http.StatusUnauthorized, errorBody{Detail: "refresh token revoked"})
		default:
			writeJSON(t, w, http.StatusUnauthorized, errorBody{Detail: "token expired"})
		}
	}))
	defer srv.Close()

	var expired atomic.Int32
	c := newTestClient(t, srv.URL, tokens, func() { expired.Add(1) })

	_, err := c.Conversations(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("Conversations() error = %v, want original auth error", err)
	}

	// The original failure's detail is preserved, not the refresh failure's
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "token expired" {
		t.Errorf("error detail = %v, want original 401 detail", err)
	}

	if tokens.Access() != "" || tokens.Refresh() != "" {
		t.Error("tokens should be cleared after refresh failure")
	}
	if got := expired.Load(); got != 1 {
		t.Errorf("OnAuthExpired calls = %d, want 1", got)
	}
}

func TestMissingRefreshTokenForcesLogout(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("stale-access", ""); err != nil {
		t.Fatal(err)
	}

	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshCalls.Add(1)
		}
		writeJSON(t, w, http.StatusUnauthorized, errorBody{Detail: "token expired"})
	}))
	defer srv.Close()

	var expired atomic.Int32
	c := newTestClient(t, srv.URL, tokens, func() { expired.Add(1) })

	_, err := c.Conversations(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("Conversations() error = %v, want auth error", err)
	}
	if got := refreshCalls.Load(); got != 0 {
		t.Errorf("refresh endpoint called %d times without a refresh token", got)
	}
	if got := expired.Load(); got != 1 {
		t.Errorf("OnAuthExpired calls = %d, want 1", got)
	}
}

func TestAPIErrorDetailExtraction(t *testing.T) {
	tokens := newTestStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, errorBody{Detail: "No files have been uploaded yet."})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)

	_, err := c.Login(context.Background(), "me@example.com", "password123")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Detail != "No files have been uploaded yet." {
		t.Errorf("Detail = %q, want backend detail verbatim", apiErr.Detail)
	}
	if got := ErrorDetail(err); got != "No files have been uploaded yet." {
		t.Errorf("ErrorDetail() = %q", got)
	}
}

func TestNetworkErrorWrapped(t *testing.T) {
	tokens := newTestStore(t)

	// Unroutable port: the server is closed before the request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)
	_, err := c.Health(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
}

func TestUploadFileMultipart(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("access", "refresh"); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/files/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()
		if header.Filename != "report.pdf" {
			t.Errorf("filename = %q, want report.pdf", header.Filename)
		}
		writeJSON(t, w, http.StatusOK, FileRecord{ID: "f1", OriginalName: "report.pdf"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)
	rec, err := c.UploadFile(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if rec.ID != "f1" {
		t.Errorf("ID = %q, want f1", rec.ID)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	tokens := newTestStore(t)
	if err := tokens.Set("access", "refresh"); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding query request: %v", err)
		}
		if req.Query != "what is in my tax documents?" {
			t.Errorf("query = %q", req.Query)
		}
		if len(req.ChatHistory) != 2 {
			t.Errorf("chat history length = %d, want 2", len(req.ChatHistory))
		}
		if req.ConversationID != nil {
			t.Errorf("conversation id = %v, want nil", *req.ConversationID)
		}
		writeJSON(t, w, http.StatusOK, QueryResponse{
			MarkdownResponse: "## Answer",
			Sources:          json.RawMessage(`[{"filename":"taxes.pdf","chunk_id":"c0"}]`),
			Intent:           "information_query",
			ConversationID:   "conv-9",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, tokens, nil)
	resp, err := c.Query(context.Background(), QueryRequest{
		Query: "what is in my tax documents?",
		ChatHistory: []HistoryTurn{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if resp.ConversationID != "conv-9" {
		t.Errorf("ConversationID = %q, want conv-9", resp.ConversationID)
	}
	if resp.MarkdownResponse != "## Answer" {
		t.Errorf("MarkdownResponse = %q", resp.MarkdownResponse)
	}
}
