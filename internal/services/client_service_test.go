package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"embedchat-backend/internal/crypto"
	"embedchat-backend/internal/models"

	"github.com/google/uuid"
)

func newClientService(t *testing.T) (*ClientService, *mockStore) {
	t.Helper()
	aead, err := crypto.NewAESGCM(bytes.Repeat([]byte{0x22}, 32))
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}
	ms := newMockStore()
	return NewClientService(ms, aead), ms
}

func TestCreateClientIssuesKeyOnce(t *testing.T) {
	svc, _ := newClientService(t)
	orgID := uuid.New()

	resp, key, err := svc.CreateClient(context.Background(), orgID, models.CreateClientRequest{
		Name:  "Acme",
		Email: "ops@acme.test",
	})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if !strings.HasPrefix(key.APIKey, "cb_") {
		t.Errorf("APIKey = %q", key.APIKey)
	}
	if resp.Name != "Acme" || resp.OrganizationID != orgID {
		t.Errorf("resp = %+v", resp)
	}

	// Reads never return the key.
	got, err := svc.GetClient(context.Background(), orgID, resp.ID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if got.Config == nil {
		t.Fatal("config missing")
	}
	if got.Config.EncryptedProviderKeys != nil {
		t.Error("encrypted keys exposed in response")
	}
}

func TestUpdateClientEncryptsProviderKeys(t *testing.T) {
	svc, ms := newClientService(t)
	orgID := uuid.New()

	created, _, err := svc.CreateClient(context.Background(), orgID, models.CreateClientRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	plaintext := "sk-ant-tenant-key"
	if _, err := svc.UpdateClient(context.Background(), orgID, created.ID, models.UpdateClientRequest{
		ProviderKeys: map[string]string{"anthropic": plaintext},
	}); err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}

	stored, err := ms.GetClientByID(context.Background(), created.ID, orgID)
	if err != nil {
		t.Fatalf("GetClientByID: %v", err)
	}
	if strings.Contains(string(stored.Config), plaintext) {
		t.Fatal("plaintext key stored")
	}

	cfg, err := models.ParseClientConfig(stored.Config)
	if err != nil {
		t.Fatalf("ParseClientConfig: %v", err)
	}
	got, err := svc.DecryptProviderKey(cfg, "anthropic")
	if err != nil {
		t.Fatalf("DecryptProviderKey: %v", err)
	}
	if got != plaintext {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}

	// Unset providers resolve to no override.
	got, err = svc.DecryptProviderKey(cfg, "openai")
	if err != nil || got != "" {
		t.Errorf("missing provider: key=%q err=%v", got, err)
	}
}

func TestUpdateClientPreservesStoredKeys(t *testing.T) {
	svc, ms := newClientService(t)
	orgID := uuid.New()

	created, _, err := svc.CreateClient(context.Background(), orgID, models.CreateClientRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if _, err := svc.UpdateClient(context.Background(), orgID, created.ID, models.UpdateClientRequest{
		ProviderKeys: map[string]string{"anthropic": "secret"},
	}); err != nil {
		t.Fatalf("UpdateClient (keys): %v", err)
	}

	// Replacing the visible config must not wipe stored secrets.
	if _, err := svc.UpdateClient(context.Background(), orgID, created.ID, models.UpdateClientRequest{
		Config: &models.ClientConfig{SystemPrompt: "new prompt"},
	}); err != nil {
		t.Fatalf("UpdateClient (config): %v", err)
	}

	stored, _ := ms.GetClientByID(context.Background(), created.ID, orgID)
	cfg, _ := models.ParseClientConfig(stored.Config)
	if cfg.SystemPrompt != "new prompt" {
		t.Errorf("SystemPrompt = %q", cfg.SystemPrompt)
	}
	key, err := svc.DecryptProviderKey(cfg, "anthropic")
	if err != nil || key != "secret" {
		t.Errorf("stored key lost: key=%q err=%v", key, err)
	}
}

func TestRegenerateAPIKey(t *testing.T) {
	svc, ms := newClientService(t)
	orgID := uuid.New()

	created, first, err := svc.CreateClient(context.Background(), orgID, models.CreateClientRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	second, err := svc.RegenerateAPIKey(context.Background(), orgID, created.ID)
	if err != nil {
		t.Fatalf("RegenerateAPIKey: %v", err)
	}
	if second.APIKey == first.APIKey {
		t.Error("api key not rotated")
	}

	if _, err := ms.GetClientByAPIKey(context.Background(), first.APIKey); err == nil {
		t.Error("old key still resolves")
	}
	if _, err := ms.GetClientByAPIKey(context.Background(), second.APIKey); err != nil {
		t.Errorf("new key does not resolve: %v", err)
	}
}
