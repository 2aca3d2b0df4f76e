package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/deepgram/schwab-mcp/pkg/logger"
	json "github.com/goccy/go-json"
)

// Store persists the single process token.
type Store interface {
	Load() (*Token, error)
	Save(token Token) error
	Path() string
}

// FileStore keeps the token as a JSON file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// storedToken mirrors Token with pointers so missing keys can be told apart
// from zero values.
type storedToken struct {
	AccessToken  *string  `json:"access_token"`
	RefreshToken *string  `json:"refresh_token"`
	ExpiresAt    *float64 `json:"expires_at"`
	TokenType    *string  `json:"token_type"`
}

// Load returns nil with no error when the file is missing or does not hold a
// complete token. Other read failures are returned.
func (s *FileStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug(logger.STORE, "No token file at %s", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warn(logger.STORE, "Ignoring malformed token file %s: %v", s.path, err)
		return nil, nil
	}

	if stored.AccessToken == nil || *stored.AccessToken == "" ||
		stored.RefreshToken == nil || *stored.RefreshToken == "" ||
		stored.ExpiresAt == nil {
		logger.Warn(logger.STORE, "Ignoring incomplete token file %s", s.path)
		return nil, nil
	}

	token := &Token{
		AccessToken:  *stored.AccessToken,
		RefreshToken: *stored.RefreshToken,
		ExpiresAt:    *stored.ExpiresAt,
		TokenType:    DefaultTokenType,
	}
	if stored.TokenType != nil && *stored.TokenType != "" {
		token.TokenType = *stored.TokenType
	}

	logger.Debug(logger.STORE, "Token loaded from %s", s.path)
	return token, nil
}

// Save replaces the token file through a temp file and rename so readers never
// see a partial write.
func (s *FileStore) Save(token Token) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	// Not every platform supports owner-only modes.
	_ = tmp.Chmod(0o600)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	logger.Debug(logger.STORE, "Token saved to %s", s.path)
	return nil
}
