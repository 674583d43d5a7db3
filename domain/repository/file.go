package repository

import (
	"context"

	"github.com/fanserve/media-api/domain/model"
)

// FileRepository is the persistence contract for file records. Lookups
// return model.ErrNotFound when no record matches.
type FileRepository interface {
	Create(ctx context.Context, record *model.FileRecord) error
	GetByID(ctx context.Context, id model.ID) (*model.FileRecord, error)

	// Update persists the full record.
	Update(ctx context.Context, record *model.FileRecord) error

	// UpdateFields patches the named columns only. Used for status-only
	// failure commits so no other field is touched.
	UpdateFields(ctx context.Context, id model.ID, fields map[string]any) error

	// TransitionStatus sets the record's status to `to` only when the
	// current status is one of `from`. Returns false without error when the
	// record is in some other state; the check-and-set is atomic.
	TransitionStatus(ctx context.Context, id model.ID, to model.Status, from ...model.Status) (bool, error)

	// AddRef inserts the ref with set semantics; duplicates are collapsed.
	AddRef(ctx context.Context, id model.ID, ref model.RefItem) error

	Delete(ctx context.Context, id model.ID) error

	// FindByRefOwners returns every record referenced by any of the owners.
	FindByRefOwners(ctx context.Context, ownerIDs []model.ID) ([]*model.FileRecord, error)

	// FindOrphans returns records with no refs that were last touched before
	// the given age in seconds.
	FindOrphans(ctx context.Context, olderThanSeconds int64) ([]*model.FileRecord, error)
}
