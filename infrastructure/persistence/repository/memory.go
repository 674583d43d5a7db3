package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/domain/repository"
)

// memoryFileRepository keeps records in a map. Tests and single-node
// development only; the semantics mirror the postgres implementation.
type memoryFileRepository struct {
	mu      sync.Mutex
	records map[model.ID]*model.FileRecord
}

func NewMemoryFileRepository() repository.FileRepository {
	return &memoryFileRepository{records: make(map[model.ID]*model.FileRecord)}
}

func (r *memoryFileRepository) Create(ctx context.Context, record *model.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func (r *memoryFileRepository) GetByID(ctx context.Context, id model.ID) (*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *memoryFileRepository) Update(ctx context.Context, record *model.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		return model.ErrNotFound
	}
	record.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func (r *memoryFileRepository) UpdateFields(ctx context.Context, id model.ID, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return model.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			record.Name = value.(string)
		case "mime_type":
			record.MimeType = value.(string)
		case "size":
			record.Size = value.(int64)
		case "server":
			record.Server = value.(model.StorageType)
		case "path":
			record.Path = value.(string)
		case "absolute_path":
			record.AbsolutePath = value.(string)
		case "metadata":
			record.Metadata = value.(model.StorageMetadata)
		case "thumbnails":
			record.Thumbnails = value.([]model.Thumbnail)
		case "duration":
			record.Duration = value.(float64)
		case "width":
			record.Width = value.(int)
		case "height":
			record.Height = value.(int)
		case "status":
			record.Status = value.(model.Status)
		case "error":
			record.Error = value.(string)
		}
	}
	record.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	return nil
}

func (r *memoryFileRepository) TransitionStatus(ctx context.Context, id model.ID, to model.Status, from ...model.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return false, model.ErrNotFound
	}
	for _, f := range from {
		if record.Status == f {
			record.Status = to
			record.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryFileRepository) AddRef(ctx context.Context, id model.ID, ref model.RefItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return model.ErrNotFound
	}
	if record.HasRef(ref) {
		return nil
	}
	record.RefItems = append(record.RefItems, ref)
	record.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	return nil
}

func (r *memoryFileRepository) Delete(ctx context.Context, id model.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *memoryFileRepository) FindByRefOwners(ctx context.Context, ownerIDs []model.ID) ([]*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := make(map[model.ID]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = true
	}

	var result []*model.FileRecord
	for _, record := range r.records {
		for _, ref := range record.RefItems {
			if owners[ref.OwnerID] {
				clone := *record
				result = append(result, &clone)
				break
			}
		}
	}
	return result, nil
}

func (r *memoryFileRepository) FindOrphans(ctx context.Context, olderThanSeconds int64) ([]*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(olderThanSeconds) * time.Second)
	var result []*model.FileRecord
	for _, record := range r.records {
		if record.Orphaned() && record.CreatedAt.Before(cutoff) {
			clone := *record
			result = append(result, &clone)
		}
	}
	return result, nil
}
