package settings

import (
	"testing"

	"github.com/fanserve/media-api/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			PublicDir: "/tmp/public",
			TempDir:   "/tmp/public/temp",
			S3: config.S3Config{
				Enabled:   true,
				AccessKey: "key",
				SecretKey: "secret",
				Region:    "us-east-1",
				Endpoint:  "http://localhost:9000",
				Bucket:    "media",
			},
		},
	}
}

func TestGetReturnsSeededConfig(t *testing.T) {
	store := NewStore(testConfig())

	got := store.Get()
	assert.Equal(t, "/tmp/public", got.PublicDir)
	assert.True(t, got.S3Configured())
}

func TestSetIsVisibleToNextGet(t *testing.T) {
	store := NewStore(testConfig())

	next := store.Get()
	next.S3.SecretKey = ""
	store.Set(next)

	assert.False(t, store.Get().S3Configured())
}

func TestSubscribeSeesEveryChange(t *testing.T) {
	store := NewStore(testConfig())

	var seen []Storage
	store.Subscribe(func(s Storage) {
		seen = append(seen, s)
	})

	next := store.Get()
	next.S3.Bucket = "other"
	store.Set(next)

	require.Len(t, seen, 1)
	assert.Equal(t, "other", seen[0].S3.Bucket)
}

func TestS3ConfiguredRequiresEveryField(t *testing.T) {
	base := testConfig().Storage.S3

	tests := []struct {
		name   string
		mutate func(*config.S3Config)
	}{
		{"disabled", func(c *config.S3Config) { c.Enabled = false }},
		{"no access key", func(c *config.S3Config) { c.AccessKey = "" }},
		{"no secret", func(c *config.S3Config) { c.SecretKey = "" }},
		{"no region", func(c *config.S3Config) { c.Region = "" }},
		{"no endpoint", func(c *config.S3Config) { c.Endpoint = "" }},
		{"no bucket", func(c *config.S3Config) { c.Bucket = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s3 := base
			tt.mutate(&s3)
			assert.False(t, Storage{S3: s3}.S3Configured())
		})
	}
}
