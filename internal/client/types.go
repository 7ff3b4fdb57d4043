package client

import (
	"encoding/json"
	"time"
)

// TokenResponse is returned by login, register and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// loginRequest is the body for login and register.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the body for the token refresh endpoint.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Conversation is one entry of the conversation list. The server owns
// ordering (most recently updated first) and all fields; ids are opaque.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ConversationListResponse wraps the conversation listing.
type ConversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}

// conversationRequest is the body for create and update.
type conversationRequest struct {
	Title *string `json:"title"`
}

// MessageRecord is a stored chat message as returned by the messages
// endpoint. Sources is kept raw here; normalization happens at the chat
// session's ingestion boundary (historically the field has been stored both
// as structured JSON and as a JSON-encoded string).
type MessageRecord struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	Sources        json.RawMessage `json:"sources,omitempty"`
	Intent         string          `json:"intent,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// HistoryTurn is one prior exchange entry sent with a query.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest is the body for the query endpoint. ConversationID is nil
// when the exchange has not been attached to a conversation yet; the server
// then creates one and reports its id in the response.
type QueryRequest struct {
	Query          string        `json:"query"`
	ChatHistory    []HistoryTurn `json:"chat_history"`
	ConversationID *string       `json:"conversation_id,omitempty"`
}

// QueryResponse is the assistant's answer. The response body is always
// markdown. Sources stays raw for the same reason as MessageRecord.Sources.
type QueryResponse struct {
	MarkdownResponse string          `json:"markdown_response"`
	Sources          json.RawMessage `json:"sources"`
	Intent           string          `json:"intent"`
	ConversationID   string          `json:"conversation_id"`
}

// FileRecord describes one uploaded document.
type FileRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	UploadDate   time.Time `json:"upload_date"`
	IsProcessed  bool      `json:"is_processed"`
	DownloadURL  string    `json:"download_url,omitempty"`
}

// FileListResponse wraps the file listing.
type FileListResponse struct {
	Files []FileRecord `json:"files"`
	Total int          `json:"total"`
}

// FileDeleteResponse confirms a deletion.
type FileDeleteResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// HealthResponse is the backend liveness report.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}
