// Package storage provides the byte-level backends that own media
// artifacts: local disk under the public directory, an S3-compatible
// object store, and an in-memory backend for tests.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/fanserve/media-api/domain/model"
)

// ErrUnavailable is returned when a backend's required configuration is
// missing. Callers fall back to local disk instead of failing the request.
var ErrUnavailable = errors.New("storage backend unavailable")

// UploadResult describes where an uploaded object ended up.
type UploadResult struct {
	Key      string
	Location string
	Bucket   string
}

// Backend is the byte-level storage contract.
type Backend interface {
	Type() model.StorageType

	Upload(ctx context.Context, key string, acl model.ACL, body io.Reader, mimeType string) (*UploadResult, error)

	// DeleteObjects removes the given keys. Missing keys are not an error.
	DeleteObjects(ctx context.Context, keys []string) error

	ReadStream(ctx context.Context, key string) (io.ReadCloser, error)

	// CheckAvailability re-reads live configuration on every call; storage
	// credentials are runtime-mutable.
	CheckAvailability(ctx context.Context) bool
}
