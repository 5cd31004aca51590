package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "Dupehound"

	// KeyringGitHubTokenItem is the key for the GitHub token
	KeyringGitHubTokenItem = "github-token"
)

// KeyringManager handles secure credential storage in the OS keychain.
// macOS: Keychain Access, Windows: Credential Manager, Linux: Secret Service.
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveGitHubToken stores the GitHub token in the OS keychain.
func (km *KeyringManager) SaveGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := keyring.Set(KeyringService, KeyringGitHubTokenItem, token); err != nil {
		km.logger.Error("failed to save github token to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("github token saved to keychain", "service", KeyringService)
	return nil
}

// GetGitHubToken retrieves the GitHub token from the OS keychain.
// An unset token is not an error.
func (km *KeyringManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get github token from keychain", "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	return token, nil
}

// DeleteGitHubToken removes the token from the OS keychain.
func (km *KeyringManager) DeleteGitHubToken() error {
	err := keyring.Delete(KeyringService, KeyringGitHubTokenItem)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	return nil
}
