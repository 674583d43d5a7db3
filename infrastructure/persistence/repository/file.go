package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) repository.FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, record *model.FileRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *fileRepository) GetByID(ctx context.Context, id model.ID) (*model.FileRecord, error) {
	var record model.FileRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *fileRepository) Update(ctx context.Context, record *model.FileRecord) error {
	record.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	result := r.db.WithContext(ctx).Save(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *fileRepository) UpdateFields(ctx context.Context, id model.ID, fields map[string]any) error {
	fields["updated_at"] = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	result := r.db.WithContext(ctx).
		Model(&model.FileRecord{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *fileRepository) TransitionStatus(ctx context.Context, id model.ID, to model.Status, from ...model.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.FileRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": sql.NullTime{Time: time.Now().UTC(), Valid: true},
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Distinguish a lost claim from a missing record.
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *fileRepository) AddRef(ctx context.Context, id model.ID, ref model.RefItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.FileRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}

		if record.HasRef(ref) {
			return nil
		}
		record.RefItems = append(record.RefItems, ref)
		record.UpdatedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		return tx.Save(&record).Error
	})
}

func (r *fileRepository) Delete(ctx context.Context, id model.ID) error {
	result := r.db.WithContext(ctx).Delete(&model.FileRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *fileRepository) FindByRefOwners(ctx context.Context, ownerIDs []model.ID) ([]*model.FileRecord, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(ownerIDs))
	args := make([]any, 0, len(ownerIDs))
	for _, ownerID := range ownerIDs {
		conds = append(conds, "ref_items::jsonb @> ?::jsonb")
		args = append(args, fmt.Sprintf(`[{"ownerId":%q}]`, ownerID))
	}

	var records []*model.FileRecord
	err := r.db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Find(&records).Error
	return records, err
}

func (r *fileRepository) FindOrphans(ctx context.Context, olderThanSeconds int64) ([]*model.FileRecord, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(olderThanSeconds) * time.Second)

	var records []*model.FileRecord
	err := r.db.WithContext(ctx).
		Where("(ref_items IS NULL OR ref_items::text IN ('[]', 'null')) AND created_at < ?", cutoff).
		Find(&records).Error
	return records, err
}
