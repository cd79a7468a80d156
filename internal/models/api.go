package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ErrorResponse is the uniform error payload for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Dashboard auth ---

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken    string    `json:"access_token"`
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
}

// --- Clients (admin API) ---

type CreateClientRequest struct {
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Config *ClientConfig `json:"config,omitempty"`
}

type UpdateClientRequest struct {
	Name     *string       `json:"name,omitempty"`
	Config   *ClientConfig `json:"config,omitempty"`
	IsActive *bool         `json:"is_active,omitempty"`
	// ProviderKeys supplies plaintext per-provider API keys to encrypt
	// and store; omitted providers keep their stored keys.
	ProviderKeys map[string]string `json:"provider_keys,omitempty"`
}

// ClientResponse never includes the API key; it is returned once, by
// create and regenerate, in APIKeyResponse.
type ClientResponse struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Config         *ClientConfig `json:"config,omitempty"`
	IsActive       bool          `json:"is_active"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type APIKeyResponse struct {
	ClientID uuid.UUID `json:"client_id"`
	APIKey   string    `json:"api_key"`
}

type ListClientsResponse struct {
	Clients []ClientResponse `json:"clients"`
}

// --- Sessions (widget API) ---

type CreateSessionRequest struct {
	UserIdentifier string         `json:"userIdentifier,omitempty"`
	Title          string         `json:"title,omitempty"`
	Config         *SessionConfig `json:"config,omitempty"`
}

type SessionResponse struct {
	ID             uuid.UUID      `json:"sessionId"`
	Title          string         `json:"title,omitempty"`
	UserIdentifier string         `json:"userIdentifier,omitempty"`
	Config         *SessionConfig `json:"config,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastActivity   time.Time      `json:"lastActivity"`
	MessageCount   int64          `json:"messageCount"`
}

type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// --- Chat (widget API) ---

type ChatMessageRequest struct {
	SessionID uuid.UUID      `json:"sessionId"`
	Message   string         `json:"message"`
	Config    *SessionConfig `json:"config,omitempty"` // merged into the session before assembly
}

type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

type ChatMessageResponse struct {
	Response     string     `json:"response"`
	SessionID    uuid.UUID  `json:"sessionId"`
	MessageCount int64      `json:"messageCount"`
	Provider     string     `json:"provider"`
	Model        string     `json:"model"`
	Usage        TokenUsage `json:"usage"`
	Timestamp    time.Time  `json:"timestamp"`
}

type MessageView struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ListMessagesResponse struct {
	SessionID uuid.UUID     `json:"sessionId"`
	Messages  []MessageView `json:"messages"`
}

// --- Files (widget API) ---

type FileUploadResponse struct {
	FileID       uuid.UUID       `json:"fileId"`
	SessionID    uuid.UUID       `json:"sessionId"`
	OriginalName string          `json:"originalName"`
	FileType     string          `json:"fileType"`
	FileSize     int64           `json:"fileSize"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	UploadedAt   time.Time       `json:"uploadedAt"`
}

// --- Widget config (widget API) ---

type WidgetConfigResponse struct {
	ClientName string          `json:"clientName"`
	Branding   *WidgetBranding `json:"branding,omitempty"`
}
