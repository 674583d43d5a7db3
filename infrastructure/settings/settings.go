// Package settings holds the process-wide, runtime-mutable storage
// configuration. Storage credentials can change while the service is
// running, so backends call Get on every operation instead of holding a
// snapshot.
package settings

import (
	"sync"

	"github.com/fanserve/media-api/infrastructure/config"
)

// Storage is the current storage configuration.
type Storage struct {
	PublicDir string
	TempDir   string
	S3        config.S3Config
}

// S3Configured reports whether every field required to talk to the object
// store is present.
func (s Storage) S3Configured() bool {
	return s.S3.Enabled &&
		s.S3.AccessKey != "" &&
		s.S3.SecretKey != "" &&
		s.S3.Region != "" &&
		s.S3.Endpoint != "" &&
		s.S3.Bucket != ""
}

// Store is a mutable settings holder with change notification.
type Store struct {
	mu          sync.RWMutex
	current     Storage
	subscribers []func(Storage)
}

func NewStore(cfg *config.Config) *Store {
	return &Store{
		current: Storage{
			PublicDir: cfg.Storage.PublicDir,
			TempDir:   cfg.Storage.TempDir,
			S3:        cfg.Storage.S3,
		},
	}
}

// Get returns the current settings. Callers must not cache the result
// across operations.
func (s *Store) Get() Storage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the current settings and notifies subscribers.
func (s *Store) Set(next Storage) {
	s.mu.Lock()
	s.current = next
	subs := make([]func(Storage), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers a callback invoked on every Set.
func (s *Store) Subscribe(fn func(Storage)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
