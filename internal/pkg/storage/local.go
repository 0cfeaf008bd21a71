package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps artifacts on the local filesystem below a base directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a filesystem-backed artifact store.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (s *LocalStore) path(key string) (string, error) {
	cleaned := filepath.Clean(strings.TrimLeft(key, "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid artifact key: %s", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_ = ctx
	_ = contentType
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Write-once: an existing artifact is never overwritten.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.Write(body)
	return err
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
