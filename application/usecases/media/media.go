// Package media composes storage, transcoding, events and persistence into
// the processing pipeline every other module consumes. Callers reference
// files through refs, queue conversions, and resolve access-controlled
// URLs; only this package mutates file records.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/domain/repository"
	"github.com/fanserve/media-api/infrastructure/events"
	"github.com/fanserve/media-api/infrastructure/logger"
	"github.com/fanserve/media-api/infrastructure/moderation"
	"github.com/fanserve/media-api/infrastructure/settings"
	"github.com/fanserve/media-api/infrastructure/sign"
	"github.com/fanserve/media-api/infrastructure/storage"
	"github.com/fanserve/media-api/infrastructure/transcode"
)

// VideoTranscoder converts, probes and thumbnails video sources.
type VideoTranscoder interface {
	Convert(sourcePath string) (*transcode.Result, error)
	Probe(sourcePath string) (*transcode.Metadata, error)
	CreateThumbnails(sourcePath string, opts transcode.ThumbnailOptions) ([]string, error)
}

// AudioTranscoder re-encodes audio sources to the delivery codec.
type AudioTranscoder interface {
	NeedsConvert(mimeType string) bool
	Convert(sourcePath string) (*transcode.Result, error)
	Probe(sourcePath string) (*transcode.Metadata, error)
}

// ImageProcessor produces thumbnails and metadata-free image copies.
type ImageProcessor interface {
	CreateThumbnail(sourcePath string, width, height int) ([]byte, error)
	StripMetadata(sourcePath string, mimeType string) ([]byte, error)
}

// ExplicitScanner classifies image bytes for explicit content.
type ExplicitScanner interface {
	Scan(ctx context.Context, imageBytes []byte) (*moderation.Result, error)
}

// UploadInput is the ingest contract produced by the upload handler.
type UploadInput struct {
	TempPath string
	MimeType string
	Size     int64
	Filename string
}

// ThumbnailSize is a requested thumbnail bounding box.
type ThumbnailSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UploadOptions is the ingest options bag.
type UploadOptions struct {
	Destination       string
	UploadImmediately bool
	GenerateThumbnail bool
	ThumbnailSize     ThumbnailSize
	ACL               model.ACL
	Server            model.StorageType
}

// UseCase is the public contract of the media pipeline.
type UseCase interface {
	CreateFromUpload(ctx context.Context, fileType string, upload UploadInput, opts UploadOptions) (*model.FileRecord, error)
	Get(ctx context.Context, id model.ID) (*model.FileRecord, error)

	QueueProcessVideo(ctx context.Context, id model.ID, opts ProcessVideoOptions) (bool, error)
	QueueProcessAudio(ctx context.Context, id model.ID, opts ProcessAudioOptions) (bool, error)
	QueueProcessPhoto(ctx context.Context, id model.ID, opts ProcessPhotoOptions) (bool, error)

	AddRef(ctx context.Context, id model.ID, ref model.RefItem) error
	Remove(ctx context.Context, id model.ID) error
	RemoveIfNotHaveRef(ctx context.Context, id model.ID) (bool, error)
	DeleteManyByRefIDs(ctx context.Context, ownerIDs []model.ID) error

	URL(record *model.FileRecord, canView bool) string
	ModerateImage(ctx context.Context, id model.ID) (*moderation.Result, error)
}

// Deps collects the collaborators of the pipeline.
type Deps struct {
	Repo     repository.FileRepository
	Selector *storage.Selector
	Local    *storage.LocalDisk
	Bus      events.Bus
	Video    VideoTranscoder
	Audio    AudioTranscoder
	Image    ImageProcessor
	Scanner  ExplicitScanner
	Signer   sign.Signer
	Settings *settings.Store
	Logger   *logger.Logger

	BaseURL    string
	SignExpiry time.Duration
}

type mediaUseCase struct {
	Deps
}

// New wires the pipeline and subscribes its job handlers on the bus.
func New(deps Deps) (UseCase, error) {
	if deps.SignExpiry <= 0 {
		deps.SignExpiry = sign.DefaultExpiry
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}

	uc := &mediaUseCase{Deps: deps}
	if err := uc.subscribe(); err != nil {
		return nil, fmt.Errorf("failed to subscribe job handlers: %w", err)
	}
	return uc, nil
}

func (uc *mediaUseCase) Get(ctx context.Context, id model.ID) (*model.FileRecord, error) {
	return uc.Repo.GetByID(ctx, id)
}

// CreateFromUpload ingests a temp file produced by the upload handler. With
// UploadImmediately the bytes move to the selected backend now; otherwise
// the record points at the temp location until a queued job finalizes it.
func (uc *mediaUseCase) CreateFromUpload(ctx context.Context, fileType string, upload UploadInput, opts UploadOptions) (*model.FileRecord, error) {
	if _, err := os.Stat(upload.TempPath); err != nil {
		return nil, fmt.Errorf("upload source missing: %w", err)
	}

	if opts.ACL == "" {
		opts.ACL = model.ACLPublicRead
	}
	if opts.Server == "" {
		opts.Server = model.StorageLocalDisk
	}

	name := uniqueName(upload.Filename)
	key := path.Join(opts.Destination, name)

	record := &model.FileRecord{
		ID:       model.NewID(),
		Type:     fileType,
		Name:     name,
		MimeType: upload.MimeType,
		Size:     upload.Size,
		ACL:      opts.ACL,
		Status:   model.StatusUploaded,
	}

	var thumbnails []model.Thumbnail
	if opts.UploadImmediately {
		backend := uc.Selector.Pick(ctx, opts.Server)

		if opts.GenerateThumbnail && record.IsImage() {
			thumb, err := uc.createThumbnailNow(ctx, backend, upload, key, opts)
			if err != nil {
				return nil, err
			}
			thumbnails = append(thumbnails, *thumb)
		}

		src, err := os.Open(upload.TempPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open upload source: %w", err)
		}
		result, err := backend.Upload(ctx, key, opts.ACL, src, upload.MimeType)
		src.Close()
		if err != nil {
			return nil, err
		}

		record.Server = backend.Type()
		record.Thumbnails = thumbnails
		uc.applyUploadResult(record, backend.Type(), key, result)

		if backend.Type() != model.StorageLocalDisk {
			_ = os.Remove(upload.TempPath)
		} else {
			// The temp copy is no longer the canonical artifact.
			if abs, err := filepath.Abs(upload.TempPath); err == nil && abs != record.AbsolutePath {
				_ = os.Remove(upload.TempPath)
			}
		}
	} else {
		record.Server = model.StorageLocalDisk
		record.Path = uc.relativeToPublic(upload.TempPath)
		record.AbsolutePath = upload.TempPath
	}

	if err := uc.Repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}
	return record, nil
}

func (uc *mediaUseCase) createThumbnailNow(ctx context.Context, backend storage.Backend, upload UploadInput, key string, opts UploadOptions) (*model.Thumbnail, error) {
	data, err := uc.Image.CreateThumbnail(upload.TempPath, opts.ThumbnailSize.Width, opts.ThumbnailSize.Height)
	if err != nil {
		return nil, err
	}

	thumbKey := thumbnailKey(key)
	result, err := backend.Upload(ctx, thumbKey, opts.ACL, bytes.NewReader(data), "image/jpeg")
	if err != nil {
		return nil, err
	}

	thumb := &model.Thumbnail{
		Path: thumbKey,
		Size: int64(len(data)),
	}
	if backend.Type() == model.StorageS3 {
		thumb.Path = result.Location
		thumb.AbsolutePath = thumbKey
	} else {
		thumb.AbsolutePath = result.Location
	}
	return thumb, nil
}

// applyUploadResult sets the locator fields for a completed upload.
func (uc *mediaUseCase) applyUploadResult(record *model.FileRecord, server model.StorageType, key string, result *storage.UploadResult) {
	switch server {
	case model.StorageS3:
		cfg := uc.Settings.Get()
		record.Path = result.Location
		record.AbsolutePath = key
		record.Metadata = model.StorageMetadata{
			Bucket:   result.Bucket,
			Endpoint: cfg.S3.Endpoint,
			Region:   cfg.S3.Region,
		}
	default:
		record.Path = key
		record.AbsolutePath = result.Location
		record.Metadata = model.StorageMetadata{}
	}
}

// URL resolves the caller-facing location of a record. Object-store records
// expose their stored location; local records get a base URL plus a signed
// short-lived token. Entitlement (canView) is the caller's business; it
// does not change the URL shape.
func (uc *mediaUseCase) URL(record *model.FileRecord, canView bool) string {
	if record.Server == model.StorageS3 {
		return record.Path
	}
	token := sign.WithDuration(uc.Signer, record.ID.String(), uc.SignExpiry)
	return fmt.Sprintf("%s/api/v1/d/%s", strings.TrimRight(uc.BaseURL, "/"), token)
}

// ModerateImage runs explicit-content classification on the stored bytes.
func (uc *mediaUseCase) ModerateImage(ctx context.Context, id model.ID) (*moderation.Result, error) {
	if uc.Scanner == nil {
		return nil, fmt.Errorf("moderation probe not configured")
	}

	record, err := uc.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	backend := uc.Selector.ByType(record.Server)
	rc, err := backend.ReadStream(ctx, record.AbsolutePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return uc.Scanner.Scan(ctx, data)
}

// relativeToPublic normalizes an absolute path to a public-dir-relative
// locator when possible.
func (uc *mediaUseCase) relativeToPublic(p string) string {
	publicDir, err := filepath.Abs(uc.Local.PublicDir())
	if err != nil {
		return filepath.ToSlash(p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(publicDir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// uniqueName prefixes the sanitized original name with a timestamp. Staging
// directories are shared scratch space; uniqueness comes from the name, not
// from locking.
func uniqueName(filename string) string {
	base := unsafeNameChars.ReplaceAllString(filepath.Base(filename), "-")
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base)
}

// thumbnailKey derives the thumbnail object key from the main key.
func thumbnailKey(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "-thumb.jpg"
}
