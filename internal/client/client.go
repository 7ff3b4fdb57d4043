// Package client provides the REST client for the My Stuff backend API.
//
// All protected endpoints carry "Authorization: Bearer <access token>" when
// a token is present. A 401 response triggers a single transparent
// refresh-and-retry: the refresh token mints a new access token, the
// original request is re-issued exactly once, and a second 401 propagates
// without looping. An irrecoverable refresh clears the stored tokens and
// fires the OnAuthExpired hook so the session manager can force a logout.
//
// Error taxonomy:
//   - ErrNetwork: transport failure, no HTTP response
//   - *APIError: backend-reported failure with its `detail` message
//   - IsAuthError: 401 (invalid credentials or expired token)
//
// The client is safe for concurrent use; in-flight requests share the
// token store and a client-side rate limiter.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mystuffai/mystuff/internal/log"
	"github.com/mystuffai/mystuff/internal/token"
)

// apiPrefix is the backend's versioned route prefix.
const apiPrefix = "/api/v1"

// Config holds client construction parameters.
type Config struct {
	// BaseURL is the backend address, e.g. "http://localhost:8000". Required.
	BaseURL string

	// Tokens is the durable credential store. Required.
	Tokens *token.Store

	// Logger for transport diagnostics. Required.
	Logger log.Logger

	// HTTPClient overrides the transport. Optional; default has the
	// given timeout.
	HTTPClient *http.Client

	// Timeout bounds a single request when HTTPClient is not supplied.
	// Optional; defaults to 120s.
	Timeout time.Duration

	// RateLimiter throttles outbound requests. Optional; default
	// 10 req/s sustained with a burst of 20, nil-safe via default.
	RateLimiter *rate.Limiter

	// OnAuthExpired is invoked after the refresh path gives up and clears
	// the stored tokens. Optional.
	OnAuthExpired func()
}

// Client talks to the My Stuff backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        *token.Store
	limiter       *rate.Limiter
	logger        log.Logger
	onAuthExpired func()

	// refreshMu serializes the refresh path so concurrent 401s produce a
	// single refresh call.
	refreshMu sync.Mutex
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("client: token store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("client: logger is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 20)
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    httpClient,
		tokens:        cfg.Tokens,
		limiter:       limiter,
		logger:        cfg.Logger,
		onAuthExpired: cfg.OnAuthExpired,
	}, nil
}

// --- Auth endpoints (unauthenticated) ---

// Login exchanges credentials for a token pair. It does not store the
// tokens; that decision belongs to the auth manager.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.request(ctx, http.MethodPost, apiPrefix+"/auth/login",
		loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its first token pair.
func (c *Client) Register(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.request(ctx, http.MethodPost, apiPrefix+"/auth/register",
		loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken mints a new token pair from a refresh token. Used by the
// auth manager for explicit refreshes; the transparent 401 path uses the
// internal refresh instead.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.request(ctx, http.MethodPost, apiPrefix+"/auth/refresh",
		refreshRequest{RefreshToken: refreshToken}, &resp, false)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Conversation endpoints ---

// Conversations lists the user's conversations in server order.
func (c *Client) Conversations(ctx context.Context) (*ConversationListResponse, error) {
	var resp ConversationListResponse
	if err := c.request(ctx, http.MethodGet, apiPrefix+"/conversations", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateConversation creates a conversation; title may be nil for untitled.
func (c *Client) CreateConversation(ctx context.Context, title *string) (*Conversation, error) {
	var resp Conversation
	err := c.request(ctx, http.MethodPost, apiPrefix+"/conversations",
		conversationRequest{Title: title}, &resp, true)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateConversation renames a conversation.
func (c *Client) UpdateConversation(ctx context.Context, id, title string) (*Conversation, error) {
	var resp Conversation
	err := c.request(ctx, http.MethodPut, apiPrefix+"/conversations/"+url.PathEscape(id),
		conversationRequest{Title: &title}, &resp, true)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, apiPrefix+"/conversations/"+url.PathEscape(id), nil, nil, true)
}

// ConversationMessages returns the stored transcript for a conversation.
func (c *Client) ConversationMessages(ctx context.Context, id string) ([]MessageRecord, error) {
	var resp []MessageRecord
	err := c.request(ctx, http.MethodGet,
		apiPrefix+"/conversations/"+url.PathEscape(id)+"/messages", nil, &resp, true)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// --- Query endpoint ---

// Query submits a question with prior chat history and returns the
// assistant's markdown answer.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.request(ctx, http.MethodPost, apiPrefix+"/query", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- File endpoints ---

// Files lists the user's uploaded documents.
func (c *Client) Files(ctx context.Context) (*FileListResponse, error) {
	var resp FileListResponse
	if err := c.request(ctx, http.MethodGet, apiPrefix+"/files", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// File fetches a single file record with a fresh download URL.
func (c *Client) File(ctx context.Context, id string) (*FileRecord, error) {
	var resp FileRecord
	if err := c.request(ctx, http.MethodGet, apiPrefix+"/files/"+url.PathEscape(id), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteFile removes an uploaded document.
func (c *Client) DeleteFile(ctx context.Context, id string) (*FileDeleteResponse, error) {
	var resp FileDeleteResponse
	if err := c.request(ctx, http.MethodDelete, apiPrefix+"/files/"+url.PathEscape(id), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadFile uploads a document via multipart form. filename is the name
// reported to the backend; r supplies the content.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (*FileRecord, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("client: creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("client: reading upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("client: finalizing multipart body: %w", err)
	}

	var resp FileRecord
	err = c.requestRaw(ctx, http.MethodPost, apiPrefix+"/files/upload",
		body.Bytes(), writer.FormDataContentType(), &resp, true)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Health ---

// Health checks backend liveness. Unauthenticated.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.request(ctx, http.MethodGet, "/health", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Transport ---

// request marshals body as JSON and dispatches with the 401 recovery path.
func (c *Client) request(ctx context.Context, method, path string, body, result any, authenticated bool) error {
	var payload []byte
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request body: %w", err)
		}
		payload = data
		contentType = "application/json"
	}
	return c.requestRaw(ctx, method, path, payload, contentType, result, authenticated)
}

// requestRaw dispatches a prepared body. For authenticated requests a 401
// triggers one refresh-and-retry; the retried flag below is the explicit
// marker preventing a second attempt.
func (c *Client) requestRaw(ctx context.Context, method, path string, payload []byte, contentType string, result any, authenticated bool) error {
	err := c.dispatch(ctx, method, path, payload, contentType, result, authenticated)
	if !authenticated || !IsAuthError(err) {
		return err
	}

	if refreshErr := c.refreshTokens(ctx); refreshErr != nil {
		// Refresh already cleared tokens and signalled logout; the caller
		// sees the original authorization failure.
		return err
	}

	// Exactly one retry with the new access token.
	c.logger.Debug("retrying request after token refresh", "method", method, "path", path)
	return c.dispatch(ctx, method, path, payload, contentType, result, authenticated)
}

// dispatch performs a single HTTP round trip.
func (c *Client) dispatch(ctx context.Context, method, path string, payload []byte, contentType string, result any, authenticated bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("client: creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if authenticated {
		if access := c.tokens.Access(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}
	return nil
}

// apiError builds an APIError from an error response, extracting the
// backend's detail field when the body is its JSON envelope.
func (c *Client) apiError(status int, body []byte) error {
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return &APIError{StatusCode: status, Detail: envelope.Detail}
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return &APIError{StatusCode: status, Detail: detail}
}

// refreshTokens runs the silent recovery path: mint a new token pair from
// the stored refresh token and persist it. Any failure clears the stored
// tokens and fires OnAuthExpired.
func (c *Client) refreshTokens(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	refresh := c.tokens.Refresh()
	if refresh == "" {
		c.expireSession()
		return ErrNoRefreshToken
	}

	resp, err := c.RefreshToken(ctx, refresh)
	if err != nil {
		c.logger.Warn("token refresh failed", "error", err)
		c.expireSession()
		return err
	}

	// The backend may rotate the refresh token or return it unchanged;
	// store whatever it sent.
	if err := c.tokens.Set(resp.AccessToken, resp.RefreshToken); err != nil {
		c.logger.Warn("persisting refreshed tokens failed", "error", err)
		c.expireSession()
		return err
	}

	c.logger.Debug("access token refreshed")
	return nil
}

// expireSession clears credentials and notifies the forced-logout hook.
func (c *Client) expireSession() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clearing tokens failed", "error", err)
	}
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}
