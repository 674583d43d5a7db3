package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/infrastructure/settings"
)

// LocalDisk stores objects under the configured public directory. Keys are
// paths relative to that directory.
type LocalDisk struct {
	settings *settings.Store
}

func NewLocalDisk(store *settings.Store) (*LocalDisk, error) {
	l := &LocalDisk{settings: store}

	cfg := store.Get()
	if err := os.MkdirAll(cfg.PublicDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create public directory: %w", err)
	}
	if cfg.TempDir != "" {
		if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
	}

	return l, nil
}

func (l *LocalDisk) Type() model.StorageType {
	return model.StorageLocalDisk
}

func (l *LocalDisk) Upload(ctx context.Context, key string, acl model.ACL, body io.Reader, mimeType string) (*UploadResult, error) {
	fullPath := l.fullPath(key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &UploadResult{
		Key:      key,
		Location: fullPath,
	}, nil
}

func (l *LocalDisk) DeleteObjects(ctx context.Context, keys []string) error {
	for _, key := range keys {
		path, ok := l.Resolve(key)
		if !ok {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (l *LocalDisk) ReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	path, ok := l.Resolve(key)
	if !ok {
		return nil, os.ErrNotExist
	}
	return os.Open(path)
}

func (l *LocalDisk) CheckAvailability(ctx context.Context) bool {
	info, err := os.Stat(l.settings.Get().PublicDir)
	return err == nil && info.IsDir()
}

// Resolve locates a stored object. Records created under different
// directory layouts may carry either a canonical absolute path or a
// public-dir-relative one, so both are tried before treating the file as
// missing.
func (l *LocalDisk) Resolve(key string) (string, bool) {
	if filepath.IsAbs(key) {
		if fileExists(key) {
			return key, true
		}
	}
	full := l.fullPath(key)
	if fileExists(full) {
		return full, true
	}
	return "", false
}

// PublicDir returns the current base directory for local objects.
func (l *LocalDisk) PublicDir() string {
	return l.settings.Get().PublicDir
}

func (l *LocalDisk) fullPath(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(l.settings.Get().PublicDir, key)
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
