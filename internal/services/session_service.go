package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

const (
	defaultSessionListLimit = 20
	maxSessionListLimit     = 100
)

// SessionService manages conversation sessions for a widget client.
// Sessions idle longer than ttl are expired: readable but closed to new
// messages.
type SessionService struct {
	store store.Store
	ttl   time.Duration
}

func NewSessionService(s store.Store, ttl time.Duration) *SessionService {
	return &SessionService{store: s, ttl: ttl}
}

// SessionExpired reports whether a session has been idle past ttl. A
// zero ttl disables expiry.
func SessionExpired(session *models.Session, ttl time.Duration) bool {
	return ttl > 0 && time.Since(session.LastActivity) > ttl
}

// CreateSession starts a new conversation for the given client.
func (s *SessionService) CreateSession(ctx context.Context, clientID uuid.UUID, req models.CreateSessionRequest) (*models.SessionResponse, error) {
	cfg := models.SessionConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session config: %w", err)
	}

	session, err := s.store.CreateSession(ctx, store.CreateSessionParams{
		ID:             uuid.New(),
		ClientID:       clientID,
		Title:          req.Title,
		UserIdentifier: req.UserIdentifier,
		Config:         cfgJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return mapSessionToResponse(session)
}

// GetSession fetches a session scoped to the calling client.
func (s *SessionService) GetSession(ctx context.Context, clientID, sessionID uuid.UUID) (*models.SessionResponse, error) {
	session, err := s.store.GetSessionByID(ctx, sessionID, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return mapSessionToResponse(session)
}

// ListSessions returns a page of the client's sessions.
func (s *SessionService) ListSessions(ctx context.Context, clientID uuid.UUID, limit, offset int) (*models.ListSessionsResponse, error) {
	if limit <= 0 {
		limit = defaultSessionListLimit
	}
	if limit > maxSessionListLimit {
		limit = maxSessionListLimit
	}
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.store.ListSessionsByClient(ctx, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]models.SessionResponse, 0, len(sessions))
	for i := range sessions {
		if SessionExpired(&sessions[i], s.ttl) {
			continue
		}
		resp, err := mapSessionToResponse(&sessions[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return &models.ListSessionsResponse{Sessions: out}, nil
}

// ListMessages returns the newest messages of a session in
// chronological order.
func (s *SessionService) ListMessages(ctx context.Context, clientID, sessionID uuid.UUID, limit int) (*models.ListMessagesResponse, error) {
	// Ownership check before touching messages.
	if _, err := s.store.GetSessionByID(ctx, sessionID, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	messages, err := s.store.ListRecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	views := make([]models.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, models.MessageView{
			Role:      m.Role,
			Content:   m.Content,
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}
	return &models.ListMessagesResponse{SessionID: sessionID, Messages: views}, nil
}

// DeleteSession archives a session.
func (s *SessionService) DeleteSession(ctx context.Context, clientID, sessionID uuid.UUID) error {
	if err := s.store.DeleteSession(ctx, sessionID, clientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func mapSessionToResponse(session *models.Session) (*models.SessionResponse, error) {
	cfg, err := models.ParseSessionConfig(session.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session config: %w", err)
	}
	return &models.SessionResponse{
		ID:             session.ID,
		Title:          session.Title,
		UserIdentifier: session.UserIdentifier,
		Config:         &cfg,
		CreatedAt:      session.CreatedAt,
		LastActivity:   session.LastActivity,
		MessageCount:   session.MessageCount,
	}, nil
}
