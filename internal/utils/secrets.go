package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Secrets are the signing secrets an environment needs
type Secrets struct {
	JWTAccess     string
	JWTRefresh    string
	WebhookSecret string
}

// GenerateSecrets generates independent 256-bit secrets for tokens and webhooks
func GenerateSecrets() (*Secrets, error) {
	var s Secrets
	for _, target := range []*string{&s.JWTAccess, &s.JWTRefresh, &s.WebhookSecret} {
		secret, err := GenerateSecret(32)
		if err != nil {
			return nil, err
		}
		*target = secret
	}
	return &s, nil
}
