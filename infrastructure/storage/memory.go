package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/fanserve/media-api/domain/model"
)

// Memory keeps objects in a map. Test and single-process use only.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Type() model.StorageType {
	return model.StorageMemory
}

func (m *Memory) Upload(ctx context.Context, key string, acl model.ACL, body io.Reader, mimeType string) (*UploadResult, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()

	return &UploadResult{Key: key, Location: "memory://" + key}, nil
}

func (m *Memory) DeleteObjects(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.objects, key)
	}
	return nil
}

func (m *Memory) ReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) CheckAvailability(ctx context.Context) bool {
	return true
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
