package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LoadAPIKey makes sure cfg.Auth.APIKey is set. A key from the environment or
// config file wins; otherwise the key persisted in auth.key_file is used, and
// if that file does not exist a new random key is generated and written to it
// so it survives restarts.
func LoadAPIKey(cfg *Config) error {
	if key := strings.TrimSpace(cfg.Auth.APIKey); key != "" {
		cfg.Auth.APIKey = key
		return nil
	}

	keyFile := cfg.Auth.KeyFile
	if keyFile == "" {
		keyFile = ".api_key"
	}

	data, err := os.ReadFile(keyFile)
	switch {
	case err == nil:
		if key := strings.TrimSpace(string(data)); key != "" {
			cfg.Auth.APIKey = key
			slog.Info("loaded api key", "file", keyFile)
			return nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading api key file: %w", err)
	}

	key := strings.ReplaceAll(uuid.NewString(), "-", "")
	if dir := filepath.Dir(keyFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating api key dir: %w", err)
		}
	}
	if err := os.WriteFile(keyFile, []byte(key), 0o600); err != nil {
		return fmt.Errorf("writing api key file: %w", err)
	}

	cfg.Auth.APIKey = key
	slog.Warn("generated new api key", "file", keyFile)
	return nil
}
