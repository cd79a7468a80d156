package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

// mockStore is an in-memory store.Store for service tests.
type mockStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	orgs     map[uuid.UUID]*models.Organization
	clients  map[uuid.UUID]*models.Client
	sessions map[uuid.UUID]*models.Session
	messages map[uuid.UUID][]models.Message
	uploads  map[uuid.UUID]*models.FileUpload
	nextMsg  int64
}

var _ store.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		users:    map[string]*models.User{},
		orgs:     map[uuid.UUID]*models.Organization{},
		clients:  map[uuid.UUID]*models.Client{},
		sessions: map[uuid.UUID]*models.Session{},
		messages: map[uuid.UUID][]models.Message{},
		uploads:  map[uuid.UUID]*models.FileUpload{},
	}
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *mockStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

func (m *mockStore) CreateClient(ctx context.Context, arg store.CreateClientParams) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client := &models.Client{
		ID:             arg.ID,
		OrganizationID: arg.OrganizationID,
		Name:           arg.Name,
		Email:          arg.Email,
		APIKey:         arg.APIKey,
		Config:         arg.Config,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.clients[arg.ID] = client
	cp := *client
	return &cp, nil
}

func (m *mockStore) GetClientByID(ctx context.Context, id, orgID uuid.UUID) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) GetClientByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.APIKey == apiKey {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ListClientsByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Client
	for _, c := range m.clients {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateClient(ctx context.Context, arg store.UpdateClientParams) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[arg.ID]
	if !ok || c.OrganizationID != arg.OrganizationID {
		return nil, store.ErrNotFound
	}
	if arg.Name != nil {
		c.Name = *arg.Name
	}
	if arg.Config != nil {
		c.Config = arg.Config
	}
	if arg.IsActive != nil {
		c.IsActive = *arg.IsActive
	}
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (m *mockStore) UpdateClientAPIKey(ctx context.Context, id, orgID uuid.UUID, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return store.ErrNotFound
	}
	c.APIKey = apiKey
	return nil
}

func (m *mockStore) DeleteClient(ctx context.Context, id, orgID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return store.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *mockStore) CreateSession(ctx context.Context, arg store.CreateSessionParams) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := &models.Session{
		ID:             arg.ID,
		ClientID:       arg.ClientID,
		Title:          arg.Title,
		UserIdentifier: arg.UserIdentifier,
		Config:         arg.Config,
		CreatedAt:      time.Now(),
		LastActivity:   time.Now(),
	}
	m.sessions[arg.ID] = session
	cp := *session
	return &cp, nil
}

func (m *mockStore) GetSessionByID(ctx context.Context, id, clientID uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.ClientID != clientID || s.Archived {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) ListSessionsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if s.ClientID == clientID && !s.Archived {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateSessionConfig(ctx context.Context, id, clientID uuid.UUID, config json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.ClientID != clientID {
		return store.ErrNotFound
	}
	s.Config = config
	return nil
}

func (m *mockStore) TouchSession(ctx context.Context, id uuid.UUID, addedTokens int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	s.LastActivity = time.Now()
	s.TotalTokens += addedTokens
	return nil
}

func (m *mockStore) DeleteSession(ctx context.Context, id, clientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.ClientID != clientID {
		return store.ErrNotFound
	}
	s.Archived = true
	return nil
}

func (m *mockStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsg++
	msg := models.Message{
		ID:        m.nextMsg,
		SessionID: arg.SessionID,
		Role:      arg.Role,
		Content:   arg.Content,
		Metadata:  arg.Metadata,
		CreatedAt: time.Now(),
	}
	m.messages[arg.SessionID] = append(m.messages[arg.SessionID], msg)
	if s, ok := m.sessions[arg.SessionID]; ok {
		s.MessageCount++
	}
	return &msg, nil
}

func (m *mockStore) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *mockStore) CountMessages(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.messages[sessionID])), nil
}

func (m *mockStore) CreateFileUpload(ctx context.Context, arg store.CreateFileUploadParams) (*models.FileUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	upload := &models.FileUpload{
		ID:            arg.ID,
		SessionID:     arg.SessionID,
		OriginalName:  arg.OriginalName,
		FileType:      arg.FileType,
		FileSize:      arg.FileSize,
		ProcessedData: arg.ProcessedData,
		Summary:       arg.Summary,
		IsActive:      true,
		UploadedAt:    time.Now(),
	}
	m.uploads[arg.SessionID] = upload
	cp := *upload
	return &cp, nil
}

func (m *mockStore) GetActiveFileUpload(ctx context.Context, sessionID uuid.UUID) (*models.FileUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[sessionID]
	if !ok || !u.IsActive {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) DeactivateFileUploads(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.uploads[sessionID]; ok {
		u.IsActive = false
	}
	return nil
}
