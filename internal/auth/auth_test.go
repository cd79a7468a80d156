package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestGenerateAPIKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key, err := GenerateAPIKey()
		if err != nil {
			t.Fatalf("GenerateAPIKey: %v", err)
		}
		if !strings.HasPrefix(key, APIKeyPrefix) {
			t.Fatalf("key %q missing prefix %q", key, APIKeyPrefix)
		}
		if len(key) < len(APIKeyPrefix)+30 {
			t.Fatalf("key %q unexpectedly short", key)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %q", key)
		}
		seen[key] = true
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	secret := "test-secret"

	signed, err := NewAccessToken(userID, orgID, secret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("ParseWithClaims: %v", err)
	}
	if !token.Valid {
		t.Fatal("token not valid")
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.OrgID != orgID {
		t.Errorf("OrgID = %s, want %s", claims.OrgID, orgID)
	}
	if claims.Issuer != "embedchat-backend" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("hunter3", hash) {
		t.Error("wrong password accepted")
	}
}
