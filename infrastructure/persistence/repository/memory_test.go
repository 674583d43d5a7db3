package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fanserve/media-api/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(status model.Status) *model.FileRecord {
	return &model.FileRecord{
		ID:       model.NewID(),
		Type:     "feed-video",
		Name:     "clip.mp4",
		MimeType: "video/mp4",
		Server:   model.StorageLocalDisk,
		Status:   status,
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewMemoryFileRepository()

	_, err := repo.GetByID(context.Background(), model.NewID())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateAndGet(t *testing.T) {
	repo := NewMemoryFileRepository()
	record := newRecord(model.StatusUploaded)

	require.NoError(t, repo.Create(context.Background(), record))

	got, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, model.StatusUploaded, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpdateReplacesRecord(t *testing.T) {
	repo := NewMemoryFileRepository()
	record := newRecord(model.StatusUploaded)
	require.NoError(t, repo.Create(context.Background(), record))

	record.Path = "videos/a.mp4"
	record.Status = model.StatusFinished
	require.NoError(t, repo.Update(context.Background(), record))

	got, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "videos/a.mp4", got.Path)
	assert.Equal(t, model.StatusFinished, got.Status)
	assert.True(t, got.UpdatedAt.Valid)

	missing := newRecord(model.StatusUploaded)
	assert.ErrorIs(t, repo.Update(context.Background(), missing), model.ErrNotFound)
}

func TestTransitionStatus(t *testing.T) {
	repo := NewMemoryFileRepository()
	record := newRecord(model.StatusUploaded)
	require.NoError(t, repo.Create(context.Background(), record))

	ok, err := repo.TransitionStatus(context.Background(), record.ID, model.StatusProcessing,
		model.StatusUploaded, model.StatusPending, model.StatusError, model.StatusFinished)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second claim loses.
	ok, err = repo.TransitionStatus(context.Background(), record.ID, model.StatusProcessing,
		model.StatusUploaded, model.StatusPending, model.StatusError, model.StatusFinished)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.TransitionStatus(context.Background(), model.NewID(), model.StatusProcessing, model.StatusUploaded)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAddRefSetSemantics(t *testing.T) {
	repo := NewMemoryFileRepository()
	record := newRecord(model.StatusUploaded)
	require.NoError(t, repo.Create(context.Background(), record))

	ref := model.RefItem{OwnerID: model.NewID(), OwnerType: "feed"}
	require.NoError(t, repo.AddRef(context.Background(), record.ID, ref))
	require.NoError(t, repo.AddRef(context.Background(), record.ID, ref))

	got, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Len(t, got.RefItems, 1)
}

func TestFindByRefOwners(t *testing.T) {
	repo := NewMemoryFileRepository()
	owner := model.NewID()

	attached := newRecord(model.StatusFinished)
	attached.RefItems = []model.RefItem{{OwnerID: owner, OwnerType: "feed"}}
	require.NoError(t, repo.Create(context.Background(), attached))

	unrelated := newRecord(model.StatusFinished)
	unrelated.RefItems = []model.RefItem{{OwnerID: model.NewID(), OwnerType: "feed"}}
	require.NoError(t, repo.Create(context.Background(), unrelated))

	got, err := repo.FindByRefOwners(context.Background(), []model.ID{owner})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, attached.ID, got[0].ID)
}

func TestFindOrphans(t *testing.T) {
	repo := NewMemoryFileRepository()

	orphan := newRecord(model.StatusFinished)
	orphan.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.Create(context.Background(), orphan))

	referenced := newRecord(model.StatusFinished)
	referenced.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	referenced.RefItems = []model.RefItem{{OwnerID: model.NewID(), OwnerType: "message"}}
	require.NoError(t, repo.Create(context.Background(), referenced))

	fresh := newRecord(model.StatusFinished)
	require.NoError(t, repo.Create(context.Background(), fresh))

	got, err := repo.FindOrphans(context.Background(), 3600)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orphan.ID, got[0].ID)
}

func TestDeleteTwiceReturnsNotFound(t *testing.T) {
	repo := NewMemoryFileRepository()
	record := newRecord(model.StatusUploaded)
	require.NoError(t, repo.Create(context.Background(), record))

	require.NoError(t, repo.Delete(context.Background(), record.ID))
	assert.ErrorIs(t, repo.Delete(context.Background(), record.ID), model.ErrNotFound)
}

func TestUpdateFieldsPatchesStatusOnly(t *testing.T) {
	repo := NewMemoryFileRepository()
	record := newRecord(model.StatusProcessing)
	record.Path = "videos/a.mp4"
	require.NoError(t, repo.Create(context.Background(), record))

	err := repo.UpdateFields(context.Background(), record.ID, map[string]any{
		"status": model.StatusError,
		"error":  "boom",
	})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, "videos/a.mp4", got.Path)
}
