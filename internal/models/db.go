package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a dashboard user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Organization represents a workspace that owns clients.
type Organization struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Client is a tenant of the chatbot platform: one customer embedding the
// widget on their site, identified by an opaque API key.
type Client struct {
	ID             uuid.UUID       `db:"id"`
	OrganizationID uuid.UUID       `db:"organization_id"`
	Name           string          `db:"name"`
	Email          string          `db:"email"`
	APIKey         string          `db:"api_key"`
	Config         json.RawMessage `db:"config"` // ClientConfig, stored as JSONB
	IsActive       bool            `db:"is_active"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Session is one ongoing conversation between an end-user and the bot.
type Session struct {
	ID             uuid.UUID       `db:"id"`
	ClientID       uuid.UUID       `db:"client_id"`
	Title          string          `db:"title"`
	UserIdentifier string          `db:"user_identifier"`
	Config         json.RawMessage `db:"config"` // SessionConfig, stored as JSONB
	Archived       bool            `db:"archived"`
	CreatedAt      time.Time       `db:"created_at"`
	LastActivity   time.Time       `db:"last_activity"`
	TotalTokens    int64           `db:"total_tokens"`
	MessageCount   int64           `db:"message_count"`
}

// Message is a single turn within a session, stored normalized and read
// back in chronological order.
type Message struct {
	ID        int64           `db:"id"`
	SessionID uuid.UUID       `db:"session_id"`
	Role      string          `db:"role"` // "user", "assistant", "system"
	Content   string          `db:"content"`
	Metadata  json.RawMessage `db:"metadata"` // provider/model/usage for assistant turns
	CreatedAt time.Time       `db:"created_at"`
}

// FileUpload is a processed JSON/CSV file attached to a session. At most
// one upload is active per session; a new upload replaces the previous
// one wholesale, and deletion deactivates it.
type FileUpload struct {
	ID            uuid.UUID       `db:"id"`
	SessionID     uuid.UUID       `db:"session_id"`
	OriginalName  string          `db:"original_name"`
	FileType      string          `db:"file_type"` // "json" or "csv"
	FileSize      int64           `db:"file_size"`
	ProcessedData json.RawMessage `db:"processed_data"`
	Summary       json.RawMessage `db:"summary"`
	IsActive      bool            `db:"is_active"`
	UploadedAt    time.Time       `db:"uploaded_at"`
}
