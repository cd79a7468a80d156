package services

import (
	"context"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"embedchat-backend/internal/auth"
	"embedchat-backend/internal/crypto"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrGeneratingKey  = errors.New("failed to generate api key")
)

// ClientService manages tenants (widget clients) of an organization.
// Provider API keys supplied by the dashboard are encrypted with the
// platform key before they touch the database.
type ClientService struct {
	store store.Store
	aead  cipher.AEAD
}

func NewClientService(s store.Store, aead cipher.AEAD) *ClientService {
	return &ClientService{
		store: s,
		aead:  aead,
	}
}

// CreateClient provisions a new tenant and returns its API key exactly
// once. Subsequent reads never include the key.
func (s *ClientService) CreateClient(ctx context.Context, orgID uuid.UUID, req models.CreateClientRequest) (*models.ClientResponse, *models.APIKeyResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		log.Printf("Error generating api key for client %q: %v", name, err)
		return nil, nil, ErrGeneratingKey
	}

	cfg := models.ClientConfig{}
	if req.Config != nil {
		cfg = *req.Config
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal client config: %w", err)
	}

	client, err := s.store.CreateClient(ctx, store.CreateClientParams{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Email:          strings.TrimSpace(strings.ToLower(req.Email)),
		APIKey:         apiKey,
		Config:         cfgJSON,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	resp, err := mapClientToResponse(client)
	if err != nil {
		return nil, nil, err
	}
	return resp, &models.APIKeyResponse{ClientID: client.ID, APIKey: apiKey}, nil
}

// GetClient fetches a single client scoped to the caller's organization.
func (s *ClientService) GetClient(ctx context.Context, orgID, clientID uuid.UUID) (*models.ClientResponse, error) {
	client, err := s.store.GetClientByID(ctx, clientID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	return mapClientToResponse(client)
}

// ListClients lists all of the organization's clients.
func (s *ClientService) ListClients(ctx context.Context, orgID uuid.UUID) (*models.ListClientsResponse, error) {
	clients, err := s.store.ListClientsByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	out := make([]models.ClientResponse, 0, len(clients))
	for i := range clients {
		resp, err := mapClientToResponse(&clients[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return &models.ListClientsResponse{Clients: out}, nil
}

// UpdateClient applies a partial update. Plaintext provider keys in the
// request are encrypted and folded into the stored config.
func (s *ClientService) UpdateClient(ctx context.Context, orgID, clientID uuid.UUID, req models.UpdateClientRequest) (*models.ClientResponse, error) {
	var cfgJSON json.RawMessage
	if req.Config != nil || len(req.ProviderKeys) > 0 {
		// Start from the stored config so partial updates keep what
		// they don't touch.
		existing, err := s.store.GetClientByID(ctx, clientID, orgID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrClientNotFound
			}
			return nil, fmt.Errorf("failed to fetch client: %w", err)
		}
		cfg, err := models.ParseClientConfig(existing.Config)
		if err != nil {
			log.Printf("WARN: client %s has malformed config, resetting: %v", clientID, err)
			cfg = models.ClientConfig{}
		}

		if req.Config != nil {
			// Replace the visible config but preserve stored secrets.
			keys := cfg.EncryptedProviderKeys
			cfg = *req.Config
			if cfg.EncryptedProviderKeys == nil {
				cfg.EncryptedProviderKeys = keys
			}
		}

		for provider, plaintext := range req.ProviderKeys {
			encrypted, err := crypto.Encrypt(s.aead, []byte(plaintext))
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt provider key for %s: %w", provider, err)
			}
			if cfg.EncryptedProviderKeys == nil {
				cfg.EncryptedProviderKeys = map[string]string{}
			}
			cfg.EncryptedProviderKeys[provider] = base64.StdEncoding.EncodeToString(encrypted)
		}

		cfgJSON, err = json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal client config: %w", err)
		}
	}

	client, err := s.store.UpdateClient(ctx, store.UpdateClientParams{
		ID:             clientID,
		OrganizationID: orgID,
		Name:           req.Name,
		Config:         cfgJSON,
		IsActive:       req.IsActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return mapClientToResponse(client)
}

// RegenerateAPIKey rotates a client's API key, invalidating the old one.
func (s *ClientService) RegenerateAPIKey(ctx context.Context, orgID, clientID uuid.UUID) (*models.APIKeyResponse, error) {
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, ErrGeneratingKey
	}
	if err := s.store.UpdateClientAPIKey(ctx, clientID, orgID, apiKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to rotate api key: %w", err)
	}
	return &models.APIKeyResponse{ClientID: clientID, APIKey: apiKey}, nil
}

// DeleteClient removes a client and its sessions.
func (s *ClientService) DeleteClient(ctx context.Context, orgID, clientID uuid.UUID) error {
	if err := s.store.DeleteClient(ctx, clientID, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}

// DecryptProviderKey resolves a per-client provider key, if one is
// stored. Returns "" when the client has no override for the provider.
func (s *ClientService) DecryptProviderKey(cfg models.ClientConfig, provider string) (string, error) {
	encoded, ok := cfg.EncryptedProviderKeys[provider]
	if !ok {
		return "", nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode stored provider key: %w", err)
	}
	plaintext, err := crypto.Decrypt(s.aead, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt provider key: %w", err)
	}
	return string(plaintext), nil
}

// mapClientToResponse converts a DB client to an API response DTO,
// scrubbing secrets.
func mapClientToResponse(client *models.Client) (*models.ClientResponse, error) {
	cfg, err := models.ParseClientConfig(client.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	cfg.EncryptedProviderKeys = nil // never expose, even encrypted

	resp := &models.ClientResponse{
		ID:             client.ID,
		OrganizationID: client.OrganizationID,
		Name:           client.Name,
		Email:          client.Email,
		IsActive:       client.IsActive,
		CreatedAt:      client.CreatedAt,
		UpdatedAt:      client.UpdatedAt,
	}
	resp.Config = &cfg
	return resp, nil
}
