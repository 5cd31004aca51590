package config

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

// ResolveGitHubToken retrieves the GitHub token using the priority chain:
// environment variable, OS keychain, config file value.
func ResolveGitHubToken(cfg *Config) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	token, err := NewKeyringManager().GetGitHubToken()
	if err == nil && token != "" {
		return token, nil
	}

	if cfg != nil && cfg.GitHub.Token != "" {
		return cfg.GitHub.Token, nil
	}

	return "", fmt.Errorf("no GitHub token found: set GITHUB_TOKEN, run 'dupehound config set-token', or add github.token to the config file")
}

// PromptGitHubToken reads a token from the terminal without echo and stores
// it in the OS keychain.
func PromptGitHubToken() error {
	fmt.Print("GitHub token: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	token := string(raw)
	if token == "" {
		return fmt.Errorf("empty token")
	}

	return NewKeyringManager().SaveGitHubToken(token)
}
