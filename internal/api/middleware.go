package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"embedchat-backend/internal/auth"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/store"
	"embedchat-backend/pkg/httputil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// --- JWT Middleware ---

// JwtAuthMiddleware verifies the JWT token from the Authorization header.
// If valid, it injects UserID and OrgID into the request context.
func JwtAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				httputil.RespondError(w, http.StatusUnauthorized, "Malformed Authorization header (Expected: Bearer <token>)")
				return
			}

			tokenString := parts[1]
			claims := &auth.CustomClaims{}

			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})

			if err != nil {
				log.Printf("Auth Middleware: Error parsing token: %v", err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					httputil.RespondError(w, http.StatusUnauthorized, "Token has expired")
				} else if errors.Is(err, jwt.ErrTokenMalformed) {
					httputil.RespondError(w, http.StatusUnauthorized, "Malformed token")
				} else {
					httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			if !token.Valid {
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			userID := claims.UserID
			orgID := claims.OrgID
			if userID == uuid.Nil || orgID == uuid.Nil {
				log.Printf("Auth Middleware: Missing UserID (%s) or OrgID (%s) in valid token claims", userID, orgID)
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid token claims (missing IDs)")
				return
			}

			ctx := context.WithValue(r.Context(), auth.UserIDKey, userID)
			ctx = context.WithValue(ctx, auth.OrgIDKey, orgID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// --- Widget API Key Middleware ---

// APIKeyAuthMiddleware resolves the X-API-Key header to a client and
// injects it into the request context. Inactive clients are rejected.
func APIKeyAuthMiddleware(s store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if apiKey == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "X-API-Key header required")
				return
			}
			if !strings.HasPrefix(apiKey, auth.APIKeyPrefix) {
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			client, err := s.GetClientByAPIKey(r.Context(), apiKey)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					httputil.RespondError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				log.Printf("API Key Middleware: lookup failed: %v", err)
				httputil.RespondError(w, http.StatusInternalServerError, "Authentication failed")
				return
			}
			if !client.IsActive {
				httputil.RespondError(w, http.StatusForbidden, "Client is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), auth.ClientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DomainWhitelistMiddleware enforces the client's whitelisted domains
// against the request's Origin (or Referer) header. An empty whitelist
// allows every origin; localhost is always allowed for development.
// Must run after APIKeyAuthMiddleware.
func DomainWhitelistMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, ok := auth.GetClientFromContext(r.Context())
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "Client authentication required")
				return
			}

			cfg, err := models.ParseClientConfig(client.Config)
			if err != nil {
				log.Printf("Domain Middleware: client %s has malformed config: %v", client.ID, err)
				httputil.RespondError(w, http.StatusInternalServerError, "Client configuration error")
				return
			}
			if len(cfg.WhitelistedDomains) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			host := requestOriginHost(r)
			if host == "" {
				// Non-browser callers (no Origin/Referer) pass; the API
				// key already authenticates them.
				next.ServeHTTP(w, r)
				return
			}
			if isLocalhost(host) || domainAllowed(host, cfg.WhitelistedDomains) {
				next.ServeHTTP(w, r)
				return
			}

			log.Printf("Domain Middleware: origin %q rejected for client %s", host, client.ID)
			httputil.RespondError(w, http.StatusForbidden, "Origin not allowed for this client")
		})
	}
}

// requestOriginHost extracts the hostname from the Origin header,
// falling back to Referer.
func requestOriginHost(r *http.Request) string {
	raw := r.Header.Get("Origin")
	if raw == "" {
		raw = r.Header.Get("Referer")
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// domainAllowed matches the host against the whitelist, including
// subdomains of whitelisted entries.
func domainAllowed(host string, whitelist []string) bool {
	host = strings.ToLower(host)
	for _, entry := range whitelist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
