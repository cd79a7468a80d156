package store

import (
	"context"
	"encoding/json"
	"errors"

	"embedchat-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateClientParams contains parameters for creating a client.
type CreateClientParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Email          string
	APIKey         string
	Config         json.RawMessage
}

// UpdateClientParams contains parameters for a partial client update.
// Nil pointers leave the stored value untouched.
type UpdateClientParams struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           *string
	Config         json.RawMessage // replaces the stored config when non-nil
	IsActive       *bool
}

// CreateSessionParams contains parameters for creating a session.
type CreateSessionParams struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	Title          string
	UserIdentifier string
	Config         json.RawMessage
}

// CreateMessageParams contains parameters for appending a message to a
// session.
type CreateMessageParams struct {
	SessionID uuid.UUID
	Role      string
	Content   string
	Metadata  json.RawMessage
}

// CreateFileUploadParams contains parameters for attaching a processed
// file to a session.
type CreateFileUploadParams struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	OriginalName  string
	FileType      string
	FileSize      int64
	ProcessedData json.RawMessage
	Summary       json.RawMessage
}

// Store defines the interface for database operations. It allows mocking
// in tests and potential DB backend switching.
type Store interface {
	// User operations
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	// Organization operations
	CreateOrganization(ctx context.Context, org *models.Organization) error

	// Client operations
	CreateClient(ctx context.Context, arg CreateClientParams) (*models.Client, error)
	GetClientByID(ctx context.Context, id, orgID uuid.UUID) (*models.Client, error)
	GetClientByAPIKey(ctx context.Context, apiKey string) (*models.Client, error)
	ListClientsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Client, error)
	UpdateClient(ctx context.Context, arg UpdateClientParams) (*models.Client, error)
	UpdateClientAPIKey(ctx context.Context, id, orgID uuid.UUID, apiKey string) error
	DeleteClient(ctx context.Context, id, orgID uuid.UUID) error

	// Session operations
	CreateSession(ctx context.Context, arg CreateSessionParams) (*models.Session, error)
	GetSessionByID(ctx context.Context, id, clientID uuid.UUID) (*models.Session, error)
	ListSessionsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Session, error)
	UpdateSessionConfig(ctx context.Context, id, clientID uuid.UUID, config json.RawMessage) error
	TouchSession(ctx context.Context, id uuid.UUID, addedTokens int64) error
	DeleteSession(ctx context.Context, id, clientID uuid.UUID) error

	// Message operations
	CreateMessage(ctx context.Context, arg CreateMessageParams) (*models.Message, error)
	ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, sessionID uuid.UUID) (int64, error)

	// File upload operations. Creating an upload deactivates any
	// previous one for the session: a session owns at most one active
	// structured-data blob at a time.
	CreateFileUpload(ctx context.Context, arg CreateFileUploadParams) (*models.FileUpload, error)
	GetActiveFileUpload(ctx context.Context, sessionID uuid.UUID) (*models.FileUpload, error)
	DeactivateFileUploads(ctx context.Context, sessionID uuid.UUID) error
}
