package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credentials is the persisted sign-in state for the identity provider
type Credentials struct {
	mu           sync.RWMutex `json:"-"`
	IDToken      string       `json:"id_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	UID          string       `json:"uid"`
	Email        string       `json:"email"`
	DisplayName  string       `json:"display_name,omitempty"`
}

// Snapshot returns the token pair and expiry atomically
func (c *Credentials) Snapshot() (idToken, refreshToken string, expiresAt time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.IDToken, c.RefreshToken, c.ExpiresAt
}

// SetTokens replaces the token pair and expiry atomically
func (c *Credentials) SetTokens(idToken, refreshToken string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.IDToken = idToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.ExpiresAt = expiresAt
}

// Identity returns the account fields
func (c *Credentials) Identity() (uid, email, displayName string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.UID, c.Email, c.DisplayName
}

// LoadCredentials loads credentials from the credentials file
func LoadCredentials() (*Credentials, error) {
	path, err := GetCredentialsPath()
	if err != nil {
		return nil, err
	}
	return LoadCredentialsFrom(path)
}

// LoadCredentialsFrom loads credentials from path.
// A missing file returns os.ErrNotExist unwrapped so callers can test for it.
func LoadCredentialsFrom(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	return parseCredentials(data)
}

func parseCredentials(data []byte) (*Credentials, error) {
	creds := &Credentials{}
	if err := json.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("invalid credentials format: %w", err)
	}
	if err := ValidateCredentials(creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// SaveCredentials saves credentials to the credentials file
func SaveCredentials(creds *Credentials) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := GetCredentialsPath()
	if err != nil {
		return err
	}
	return SaveCredentialsTo(path, creds)
}

// SaveCredentialsTo writes credentials to path with owner-only permissions
func SaveCredentialsTo(path string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	creds.mu.RLock()
	data, err := json.MarshalIndent(creds, "", "  ")
	creds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// DeleteCredentialsAt removes the credentials file; a missing file is not an error
func DeleteCredentialsAt(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// ValidateCredentials checks that credentials can be used or refreshed
func ValidateCredentials(creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials are nil")
	}
	if creds.RefreshToken == "" && creds.IDToken == "" {
		return fmt.Errorf("credentials contain no token")
	}
	return nil
}
