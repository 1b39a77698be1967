// Package tokenstore persists the bearer token between process runs.
//
// A single fixed key is stored as a small JSON file under the user config
// directory, mode 0600. Load tolerates a missing file and reports it as
// domain.ErrNoToken so restore can distinguish "never logged in" from a
// broken store.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/resuldeger/vpnapp/internal/domain"
)

const (
	fileName = "auth_token.json"
	fileMode = 0o600
	dirMode  = 0o700
)

type FileStore struct {
	filePath string
}

type storedToken struct {
	AuthToken string    `json:"auth_token"`
	SavedAt   time.Time `json:"saved_at"`
}

// NewFileStore creates a store rooted at the user config directory.
// path overrides the default location when non-empty.
func NewFileStore(path string) (*FileStore, error) {
	if path != "" {
		return &FileStore{filePath: path}, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}

	return &FileStore{filePath: filepath.Join(configDir, "vpnapp", fileName)}, nil
}

// Save writes the token, replacing any previous one.
func (s *FileStore) Save(token string) error {
	data, err := json.Marshal(storedToken{AuthToken: token, SavedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), dirMode); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, fileMode); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// Load returns the stored token, or domain.ErrNoToken when none exists.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrNoToken
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("failed to unmarshal token file: %w", err)
	}

	if stored.AuthToken == "" {
		return "", domain.ErrNoToken
	}

	return stored.AuthToken, nil
}

// Delete removes the stored token. A missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.filePath
}
