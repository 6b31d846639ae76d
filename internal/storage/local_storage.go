package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// localStorage implements IDocumentStorage on a local directory. The default
// backend when no S3 bucket is configured, and what the tests run against.
type localStorage struct {
	baseDir string
}

// NewLocalStorage creates a directory-backed document store rooted at baseDir.
func NewLocalStorage(baseDir string) (IDocumentStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrStorageUnavailable, baseDir, err)
	}
	return &localStorage{baseDir: baseDir}, nil
}

// path resolves key inside baseDir, refusing escapes.
func (l *localStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return filepath.Join(l.baseDir, clean), nil
}

// Save writes the document bytes under key, creating parent directories.
func (l *localStorage) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir for %s: %v", ErrStorageUnavailable, key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrStorageUnavailable, key, err)
	}
	return "file://" + p, nil
}

// Delete removes the file under key. A missing file is not an error.
func (l *localStorage) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

// GetURL returns a file URL; local storage has no expiry semantics.
func (l *localStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	return "file://" + p, nil
}
