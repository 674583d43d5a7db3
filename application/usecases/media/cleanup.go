package media

import (
	"context"
	"errors"

	"github.com/fanserve/media-api/domain/model"
	"go.uber.org/zap"
)

// AddRef records that an owner depends on the file. Set semantics: adding
// the same (ownerId, ownerType) tuple twice is a no-op.
func (uc *mediaUseCase) AddRef(ctx context.Context, id model.ID, ref model.RefItem) error {
	return uc.Repo.AddRef(ctx, id, ref)
}

// Remove unconditionally deletes the record and every backend object it
// owns. Idempotent: a second call, and already-missing physical files, are
// not errors.
func (uc *mediaUseCase) Remove(ctx context.Context, id model.ID) error {
	record, err := uc.Repo.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := uc.deleteObjects(ctx, record); err != nil {
		return err
	}

	err = uc.Repo.Delete(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

// RemoveIfNotHaveRef deletes the record only when no owner references it.
// A referenced record is left untouched and false is returned.
func (uc *mediaUseCase) RemoveIfNotHaveRef(ctx context.Context, id model.ID) (bool, error) {
	record, err := uc.Repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !record.Orphaned() {
		return false, nil
	}
	if err := uc.Remove(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteManyByRefIDs cascades the destruction of owning entities to their
// attachments: every record referencing any given owner is deleted along
// with its backend objects.
func (uc *mediaUseCase) DeleteManyByRefIDs(ctx context.Context, ownerIDs []model.ID) error {
	records, err := uc.Repo.FindByRefOwners(ctx, ownerIDs)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := uc.deleteObjects(ctx, record); err != nil {
			uc.Logger.Error("failed to delete backend objects",
				zap.String("fileId", record.ID.String()), zap.Error(err))
		}
		if err := uc.Repo.Delete(ctx, record.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
	}
	return nil
}

// deleteObjects removes the main artifact and every thumbnail from the
// owning backend.
func (uc *mediaUseCase) deleteObjects(ctx context.Context, record *model.FileRecord) error {
	keys := make([]string, 0, 1+len(record.Thumbnails))
	if record.AbsolutePath != "" {
		keys = append(keys, record.AbsolutePath)
	} else if record.Path != "" {
		keys = append(keys, record.Path)
	}
	for _, thumb := range record.Thumbnails {
		if thumb.AbsolutePath != "" {
			keys = append(keys, thumb.AbsolutePath)
		} else if thumb.Path != "" {
			keys = append(keys, thumb.Path)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	backend := uc.Selector.ByType(record.Server)
	return backend.DeleteObjects(ctx, keys)
}
