package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider reads secrets from a directory of mounted files, one secret
// per file, following the Kubernetes secret volume layout. The key
// GOOGLE_API_KEY maps to the file google-api-key.
type FileProvider struct {
	secretsPath string
}

// NewFileProvider creates a provider rooted at secretsPath, typically
// /var/secrets
func NewFileProvider(secretsPath string) *FileProvider {
	return &FileProvider{secretsPath: secretsPath}
}

// GetSecret reads and trims the file named after key. A missing file yields
// an empty value, not an error, so the chain moves on to the next provider.
func (f *FileProvider) GetSecret(ctx context.Context, key string) (string, error) {
	if f.secretsPath == "" {
		return "", fmt.Errorf("secrets path not configured")
	}

	name := strings.ToLower(strings.ReplaceAll(key, "_", "-"))
	path := filepath.Join(f.secretsPath, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// Name identifies the provider in logs
func (f *FileProvider) Name() string {
	return "file"
}

// IsAvailable reports whether the secrets directory is mounted
func (f *FileProvider) IsAvailable(ctx context.Context) bool {
	if f.secretsPath == "" {
		return false
	}

	info, err := os.Stat(f.secretsPath)
	return err == nil && info.IsDir()
}
