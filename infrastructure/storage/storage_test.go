package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/infrastructure/config"
	"github.com/fanserve/media-api/infrastructure/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *settings.Store {
	t.Helper()
	dir := t.TempDir()
	return settings.NewStore(&config.Config{
		Storage: config.StorageConfig{
			PublicDir: dir,
			TempDir:   filepath.Join(dir, "temp"),
		},
	})
}

func TestLocalDiskUploadAndRead(t *testing.T) {
	store := newTestStore(t)
	local, err := NewLocalDisk(store)
	require.NoError(t, err)

	res, err := local.Upload(context.Background(), "photos/a.jpg", model.ACLPublicRead, strings.NewReader("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "photos/a.jpg", res.Key)
	assert.True(t, filepath.IsAbs(res.Location))

	rc, err := local.ReadStream(context.Background(), "photos/a.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := os.ReadFile(res.Location)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalDiskResolveTriesBothLayouts(t *testing.T) {
	store := newTestStore(t)
	local, err := NewLocalDisk(store)
	require.NoError(t, err)

	res, err := local.Upload(context.Background(), "videos/v.mp4", model.ACLPublicRead, strings.NewReader("x"), "video/mp4")
	require.NoError(t, err)

	// Canonical absolute path.
	path, ok := local.Resolve(res.Location)
	assert.True(t, ok)
	assert.Equal(t, res.Location, path)

	// Relative to the public dir.
	path, ok = local.Resolve("videos/v.mp4")
	assert.True(t, ok)
	assert.Equal(t, res.Location, path)

	_, ok = local.Resolve("videos/missing.mp4")
	assert.False(t, ok)
}

func TestLocalDiskDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	local, err := NewLocalDisk(store)
	require.NoError(t, err)

	_, err = local.Upload(context.Background(), "a.bin", model.ACLPublicRead, strings.NewReader("x"), "application/octet-stream")
	require.NoError(t, err)

	require.NoError(t, local.DeleteObjects(context.Background(), []string{"a.bin", "never-existed.bin"}))
	require.NoError(t, local.DeleteObjects(context.Background(), []string{"a.bin"}))

	_, ok := local.Resolve("a.bin")
	assert.False(t, ok)
}

func TestS3UnavailableWithoutCredentials(t *testing.T) {
	store := newTestStore(t)
	s3 := NewS3(store)

	assert.False(t, s3.CheckAvailability(context.Background()))

	_, err := s3.Upload(context.Background(), "k", model.ACLPublicRead, strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestS3AvailabilityFollowsRuntimeSettings(t *testing.T) {
	store := newTestStore(t)
	s3 := NewS3(store)
	require.False(t, s3.CheckAvailability(context.Background()))

	next := store.Get()
	next.S3 = config.S3Config{
		Enabled:   true,
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		Bucket:    "media",
	}
	store.Set(next)

	assert.True(t, s3.CheckAvailability(context.Background()))

	next.S3.SecretKey = ""
	store.Set(next)
	assert.False(t, s3.CheckAvailability(context.Background()))
}

func TestSelectorFallsBackToLocalDisk(t *testing.T) {
	store := newTestStore(t)
	local, err := NewLocalDisk(store)
	require.NoError(t, err)
	s3 := NewS3(store)

	sel := NewSelector(local, s3)

	picked := sel.Pick(context.Background(), model.StorageS3)
	assert.Equal(t, model.StorageLocalDisk, picked.Type())

	next := store.Get()
	next.S3 = config.S3Config{
		Enabled: true, AccessKey: "k", SecretKey: "s",
		Region: "us-east-1", Endpoint: "http://localhost:9000", Bucket: "media",
	}
	store.Set(next)

	picked = sel.Pick(context.Background(), model.StorageS3)
	assert.Equal(t, model.StorageS3, picked.Type())
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	mem := NewMemory()

	_, err := mem.Upload(context.Background(), "k", model.ACLPublicRead, strings.NewReader("payload"), "text/plain")
	require.NoError(t, err)

	rc, err := mem.ReadStream(context.Background(), "k")
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, mem.DeleteObjects(context.Background(), []string{"k"}))
	_, err = mem.ReadStream(context.Background(), "k")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
