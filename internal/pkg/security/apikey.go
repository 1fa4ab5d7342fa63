package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	APIKeyPrefix    = "ta_"
	apiKeyBytes     = 32
	displayedPrefix = 5
)

// GenerateAPIKey returns a new plaintext key, its storage hash and the prefix shown in listings
func GenerateAPIKey() (key, hash, prefix string, err error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate api key: %w", err)
	}

	key = APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return key, HashAPIKey(key), key[:displayedPrefix], nil
}

// HashAPIKey is the sha256 hex digest under which keys are stored and looked up
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
