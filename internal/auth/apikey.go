package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// APIKeyPrefix marks keys issued to widget clients. The prefix makes
// leaked keys easy to grep for and lets middleware reject garbage
// before hitting the database.
const APIKeyPrefix = "cb_"

const apiKeyRandomBytes = 24

// GenerateAPIKey returns a new opaque client API key.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
