package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"embedchat-backend/internal/auth"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"

	"github.com/google/uuid"
)

// stubStore provides just the client lookup the middleware needs.
type stubStore struct {
	store.Store
	client *models.Client
}

func (s stubStore) GetClientByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	if s.client != nil && s.client.APIKey == apiKey {
		return s.client, nil
	}
	return nil, store.ErrNotFound
}

func testClient(t *testing.T, whitelist []string) *models.Client {
	t.Helper()
	cfg, err := json.Marshal(models.ClientConfig{WhitelistedDomains: whitelist})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return &models.Client{
		ID:       uuid.New(),
		APIKey:   "cb_valid",
		Config:   cfg,
		IsActive: true,
	}
}

func okHandler(gotClient **models.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotClient != nil {
			c, _ := auth.GetClientFromContext(r.Context())
			*gotClient = c
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	client := testClient(t, nil)
	mw := APIKeyAuthMiddleware(stubStore{client: client})

	var gotClient *models.Client
	handler := mw(okHandler(&gotClient))

	cases := []struct {
		name   string
		key    string
		status int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong prefix", "sk_whatever", http.StatusUnauthorized},
		{"unknown key", "cb_unknown", http.StatusUnauthorized},
		{"valid key", "cb_valid", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/chat/sessions", nil)
			if tc.key != "" {
				req.Header.Set("X-API-Key", tc.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}

	if gotClient == nil || gotClient.ID != client.ID {
		t.Error("client not injected into context")
	}
}

func TestAPIKeyAuthMiddlewareInactiveClient(t *testing.T) {
	client := testClient(t, nil)
	client.IsActive = false
	handler := APIKeyAuthMiddleware(stubStore{client: client})(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "cb_valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestDomainWhitelistMiddleware(t *testing.T) {
	cases := []struct {
		name      string
		whitelist []string
		origin    string
		status    int
	}{
		{"empty whitelist allows all", nil, "https://anything.example", http.StatusOK},
		{"whitelisted domain", []string{"acme.com"}, "https://acme.com", http.StatusOK},
		{"subdomain of whitelisted", []string{"acme.com"}, "https://shop.acme.com", http.StatusOK},
		{"localhost always allowed", []string{"acme.com"}, "http://localhost:3000", http.StatusOK},
		{"other domain rejected", []string{"acme.com"}, "https://evil.example", http.StatusForbidden},
		{"no origin passes", []string{"acme.com"}, "", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testClient(t, tc.whitelist)
			handler := DomainWhitelistMiddleware()(okHandler(nil))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			req = req.WithContext(context.WithValue(req.Context(), auth.ClientKey, client))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestDomainWhitelistRefererFallback(t *testing.T) {
	client := testClient(t, []string{"acme.com"})
	handler := DomainWhitelistMiddleware()(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Referer", "https://acme.com/pricing?utm=x")
	req = req.WithContext(context.WithValue(req.Context(), auth.ClientKey, client))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestJwtAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	orgID := uuid.New()

	token, err := auth.NewAccessToken(userID, orgID, secret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	var gotUser, gotOrg uuid.UUID
	handler := JwtAuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = auth.GetUserIDFromContext(r.Context())
		gotOrg, _ = auth.GetOrgIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != userID || gotOrg != orgID {
		t.Errorf("context IDs = %s/%s, want %s/%s", gotUser, gotOrg, userID, orgID)
	}

	for _, header := range []string{"", "Bearer bogus.token.here", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/clients", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}
