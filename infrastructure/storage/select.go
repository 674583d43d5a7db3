package storage

import (
	"context"

	"github.com/fanserve/media-api/domain/model"
)

// Selector picks the backend for a request. An unavailable object store is
// a policy decision, not an error: the request proceeds on local disk.
type Selector struct {
	backends map[model.StorageType]Backend
	fallback Backend
}

func NewSelector(local *LocalDisk, others ...Backend) *Selector {
	s := &Selector{
		backends: map[model.StorageType]Backend{
			model.StorageLocalDisk: local,
		},
		fallback: local,
	}
	for _, b := range others {
		s.backends[b.Type()] = b
	}
	return s
}

// Pick returns the backend for the requested storage type, falling back to
// local disk when the requested backend is missing or unavailable.
func (s *Selector) Pick(ctx context.Context, requested model.StorageType) Backend {
	b, ok := s.backends[requested]
	if !ok || !b.CheckAvailability(ctx) {
		return s.fallback
	}
	return b
}

// ByType returns the backend owning records of the given type, without the
// availability fallback. Used for deletes and reads against existing
// records.
func (s *Selector) ByType(t model.StorageType) Backend {
	if b, ok := s.backends[t]; ok {
		return b
	}
	return s.fallback
}
