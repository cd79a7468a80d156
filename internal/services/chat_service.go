package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"embedchat-backend/internal/assembler"
	"embedchat-backend/internal/config"
	"embedchat-backend/internal/files"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/providers"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

var ErrEmptyMessage = errors.New("message cannot be empty")

// ChatService runs one chat exchange end to end: persist the user turn,
// assemble the prompt from session state, call the provider and persist
// the reply. Exchanges within a session are serialized so history stays
// coherent.
type ChatService struct {
	store    store.Store
	registry *providers.Registry
	clients  *ClientService
	asm      *assembler.Assembler
	cfg      *config.Config

	mu       sync.Mutex
	sessions map[uuid.UUID]*sync.Mutex
}

func NewChatService(s store.Store, registry *providers.Registry, clients *ClientService, asm *assembler.Assembler, cfg *config.Config) *ChatService {
	return &ChatService{
		store:    s,
		registry: registry,
		clients:  clients,
		asm:      asm,
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing exchanges of one session.
func (s *ChatService) sessionLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessions[id]
	if !ok {
		lock = &sync.Mutex{}
		s.sessions[id] = lock
	}
	return lock
}

// SendMessage handles one user message for an authenticated client.
func (s *ChatService) SendMessage(ctx context.Context, client *models.Client, req models.ChatMessageRequest) (*models.ChatMessageResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if req.SessionID == uuid.Nil {
		return nil, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}

	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.store.GetSessionByID(ctx, req.SessionID, client.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if SessionExpired(session, s.cfg.SessionTTL) {
		return nil, ErrSessionExpired
	}

	sessionCfg, err := models.ParseSessionConfig(session.Config)
	if err != nil {
		log.Printf("WARN: session %s has malformed config, resetting: %v", session.ID, err)
		sessionCfg = models.SessionConfig{}
	}

	// The widget may patch the session config on every message
	// (page context, pushed data, provider overrides).
	if req.Config != nil {
		sessionCfg = sessionCfg.Merge(*req.Config)
		merged, err := json.Marshal(sessionCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session config: %w", err)
		}
		if err := s.store.UpdateSessionConfig(ctx, session.ID, client.ID, merged); err != nil {
			return nil, fmt.Errorf("failed to update session config: %w", err)
		}
	}

	// History is read before the new user turn is stored, so the
	// current message never appears twice in the prompt.
	history, err := s.store.ListRecentMessages(ctx, session.ID, s.asm.Config().HistoryTurnCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	if _, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		SessionID: session.ID,
		Role:      "user",
		Content:   req.Message,
	}); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	asmReq, clientCfg, err := s.buildAssemblyRequest(ctx, client, session.ID, sessionCfg, req.Message, history)
	if err != nil {
		return nil, err
	}
	result := s.asm.Assemble(*asmReq)
	logAssembly(session.ID, result)

	provider, opts, err := s.resolveProvider(clientCfg, sessionCfg)
	if err != nil {
		return nil, err
	}

	reply, err := provider.GenerateResponse(ctx, []providers.Message{
		{Role: "user", Content: result.Prompt},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("provider %s failed: %w", provider.Name(), err)
	}

	metadata, err := json.Marshal(map[string]any{
		"provider":         reply.Provider,
		"model":            reply.Model,
		"promptTokens":     reply.PromptTokens,
		"completionTokens": reply.CompletionTokens,
		"estimatedTokens":  result.EstimatedTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message metadata: %w", err)
	}
	if _, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   reply.Text,
		Metadata:  metadata,
	}); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	usedTokens := int64(reply.PromptTokens + reply.CompletionTokens)
	if err := s.store.TouchSession(ctx, session.ID, usedTokens); err != nil {
		log.Printf("WARN: failed to touch session %s: %v", session.ID, err)
	}

	return &models.ChatMessageResponse{
		Response:     reply.Text,
		SessionID:    session.ID,
		MessageCount: session.MessageCount + 2,
		Provider:     reply.Provider,
		Model:        reply.Model,
		Usage: models.TokenUsage{
			PromptTokens:     reply.PromptTokens,
			CompletionTokens: reply.CompletionTokens,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// buildAssemblyRequest gathers everything prompt assembly needs:
// instructions, page context, structured data and history. An active
// uploaded file takes precedence over data pushed via session config.
func (s *ChatService) buildAssemblyRequest(ctx context.Context, client *models.Client, sessionID uuid.UUID, sessionCfg models.SessionConfig, message string, history []models.Message) (*assembler.Request, models.ClientConfig, error) {
	clientCfg, err := models.ParseClientConfig(client.Config)
	if err != nil {
		log.Printf("WARN: client %s has malformed config: %v", client.ID, err)
		clientCfg = models.ClientConfig{}
	}

	instructions := clientCfg.SystemPrompt
	if sessionCfg.CustomInstructions != "" {
		if instructions != "" {
			instructions += "\n\n"
		}
		instructions += sessionCfg.CustomInstructions
	}

	asmReq := &assembler.Request{
		Message:            message,
		CustomInstructions: instructions,
		StructuredData:     sessionCfg.Data,
	}

	if pc := sessionCfg.PageContext; pc != nil {
		asmReq.PageContext = &assembler.PageContext{
			URL:             pc.URL,
			Title:           pc.Title,
			Hostname:        pc.Hostname,
			Pathname:        pc.Pathname,
			TextExcerpt:     pc.TextExcerpt,
			MetaDescription: pc.MetaDescription,
			Timestamp:       time.UnixMilli(pc.Timestamp),
		}
	}

	upload, err := s.store.GetActiveFileUpload(ctx, sessionID)
	switch {
	case err == nil:
		asmReq.StructuredData = upload.ProcessedData
		var summary files.Summary
		if err := json.Unmarshal(upload.Summary, &summary); err == nil {
			asmReq.DataNote = files.ContextNote(upload.OriginalName, upload.FileType, summary)
		} else {
			asmReq.DataNote = files.ContextNote(upload.OriginalName, upload.FileType, files.Summary{})
		}
	case errors.Is(err, store.ErrNotFound):
		// No file; pushed session data (if any) stays in effect.
	default:
		return nil, clientCfg, fmt.Errorf("failed to fetch active file: %w", err)
	}

	for _, m := range history {
		asmReq.History = append(asmReq.History, assembler.Turn{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	return asmReq, clientCfg, nil
}

// resolveProvider picks the provider and call options for an exchange.
// Session config wins over client config, which wins over the platform
// default. Per-client stored keys override the platform key.
func (s *ChatService) resolveProvider(clientCfg models.ClientConfig, sessionCfg models.SessionConfig) (providers.Provider, providers.Options, error) {
	name := s.cfg.DefaultProvider
	if clientCfg.AIProvider != "" {
		name = clientCfg.AIProvider
	}
	if sessionCfg.AIProvider != "" {
		name = sessionCfg.AIProvider
	}

	provider, err := s.registry.Get(name)
	if err != nil {
		return nil, providers.Options{}, err
	}

	opts := providers.Options{
		Model:     sessionCfg.Model,
		MaxTokens: sessionCfg.MaxTokens,
	}
	if s.clients != nil {
		key, err := s.clients.DecryptProviderKey(clientCfg, name)
		if err != nil {
			return nil, providers.Options{}, err
		}
		opts.APIKey = key
	}
	return provider, opts, nil
}

func logAssembly(sessionID uuid.UUID, result assembler.Result) {
	r := result.Report
	log.Printf("assembled prompt for session %s: tokens=%d history=%d/%d dataDropped=%d pageCtx=%v instructions=%v",
		sessionID, result.EstimatedTokens,
		r.HistoryTurnsKept, r.HistoryTurnsKept+r.HistoryTurnsDropped,
		r.DataSectionsDropped, r.PageContext.Included, r.Instructions.Included)
}
